package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
	"civicwatch/pkg/platform/httputil"
	"civicwatch/pkg/requestcontext"

	"civicwatch/internal/geo"
	"civicwatch/internal/report"
)

// ReportService is the slice of the report service the handler needs.
type ReportService interface {
	Submit(ctx context.Context, in report.SubmitInput) (*report.Report, error)
	Edit(ctx context.Context, reportID id.ReportID, in report.EditInput) (*report.Report, error)
	Delete(ctx context.Context, reportID id.ReportID) error
	Get(ctx context.Context, reportID id.ReportID) (*report.Report, error)
	List(ctx context.Context, f report.Filter) ([]*report.Report, error)
	RecordView(ctx context.Context, reportID id.ReportID) error
	RecordShare(ctx context.Context, reportID id.ReportID) error
	FileReview(ctx context.Context, reportID id.ReportID, reason string) (*report.Review, error)
	ListReviews(ctx context.Context, reportID id.ReportID) ([]*report.Review, error)
}

// ReportHandler wires report endpoints to the report service.
type ReportHandler struct {
	service ReportService
	logger  *slog.Logger
}

func NewReportHandler(service ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{service: service, logger: logger}
}

type submitReportRequest struct {
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Category   string     `json:"category"`
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Address    string     `json:"address"`
	OccurredAt *time.Time `json:"occurred_at"`
}

type editReportRequest struct {
	Title      *string    `json:"title"`
	Body       *string    `json:"body"`
	Category   *string    `json:"category"`
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Address    *string    `json:"address"`
	OccurredAt *time.Time `json:"occurred_at"`
}

type fileReviewRequest struct {
	Reason string `json:"reason"`
}

type reportResponse struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	Category       string     `json:"category"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	Address        string     `json:"address,omitempty"`
	StationID      *string    `json:"station_id,omitempty"`
	Status         string     `json:"status"`
	ModerationNote string     `json:"moderation_note,omitempty"`
	ModeratorID    *string    `json:"moderator_id,omitempty"`
	ModeratedAt    *time.Time `json:"moderated_at,omitempty"`
	PublisherID    string     `json:"publisher_id"`
	PublisherBadge string     `json:"publisher_badge"`
	Views          int64      `json:"views"`
	Shares         int64      `json:"shares"`
	OccurredAt     time.Time  `json:"occurred_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func fromReport(r *report.Report) reportResponse {
	resp := reportResponse{
		ID:             r.ID.String(),
		Title:          r.Title,
		Body:           r.Body,
		Category:       string(r.Category),
		Address:        r.Address,
		Status:         string(r.Status),
		PublisherID:    r.PublisherID.String(),
		PublisherBadge: r.PublisherBadge,
		Views:          r.Views,
		Shares:         r.Shares,
		OccurredAt:     r.OccurredAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Coordinate != nil {
		lat, lon := r.Coordinate.Latitude, r.Coordinate.Longitude
		resp.Latitude, resp.Longitude = &lat, &lon
	}
	if r.StationID != nil {
		s := r.StationID.String()
		resp.StationID = &s
	}
	if r.Moderation != nil {
		m := r.Moderation.ModeratorID.String()
		at := r.Moderation.At
		resp.ModerationNote = r.Moderation.Note
		resp.ModeratorID = &m
		resp.ModeratedAt = &at
	}
	return resp
}

type reviewResponse struct {
	ID         string     `json:"id"`
	ReportID   string     `json:"report_id"`
	ReporterID string     `json:"reporter_id"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	Resolution string     `json:"resolution,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func fromReview(rv *report.Review) reviewResponse {
	return reviewResponse{
		ID:         rv.ID.String(),
		ReportID:   rv.ReportID.String(),
		ReporterID: rv.ReporterID.String(),
		Reason:     rv.Reason,
		Status:     string(rv.Status),
		Resolution: rv.Resolution,
		CreatedAt:  rv.CreatedAt,
		ResolvedAt: rv.ResolvedAt,
	}
}

// HandleSubmit handles POST /reports.
func (h *ReportHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[submitReportRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	in := report.SubmitInput{
		Title:    req.Title,
		Body:     req.Body,
		Category: report.Category(req.Category),
		Address:  req.Address,
	}
	if req.Latitude != nil && req.Longitude != nil {
		in.Coordinate = &geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	created, err := h.service.Submit(ctx, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromReport(created))
}

// HandleEdit handles PATCH /reports/{reportID}.
func (h *ReportHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID, ok := parseReportID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[editReportRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	in := report.EditInput{
		Title:      req.Title,
		Body:       req.Body,
		Address:    req.Address,
		OccurredAt: req.OccurredAt,
	}
	if req.Category != nil {
		c := report.Category(*req.Category)
		in.Category = &c
	}
	if req.Latitude != nil && req.Longitude != nil {
		in.Coordinate = &geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	updated, err := h.service.Edit(ctx, reportID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromReport(updated))
}

// HandleDelete handles DELETE /reports/{reportID}.
func (h *ReportHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	reportID, ok := parseReportID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), reportID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGet handles GET /reports/{reportID}. Successful reads count as a
// view.
func (h *ReportHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID, ok := parseReportID(w, r)
	if !ok {
		return
	}
	found, err := h.service.Get(ctx, reportID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.service.RecordView(ctx, reportID); err != nil {
		h.logger.WarnContext(ctx, "view count skipped", "report_id", reportID.String(), "error", err)
	}
	httputil.WriteJSON(w, http.StatusOK, fromReport(found))
}

// HandleShare handles POST /reports/{reportID}/share.
func (h *ReportHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	reportID, ok := parseReportID(w, r)
	if !ok {
		return
	}
	if err := h.service.RecordShare(r.Context(), reportID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /reports. Filters: status, category, publisher_id,
// limit, offset. Visibility is enforced by the service.
func (h *ReportHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, ok := parseListFilter(w, r)
	if !ok {
		return
	}

	reports, err := h.service.List(ctx, f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]reportResponse, 0, len(reports))
	for _, rep := range reports {
		out = append(out, fromReport(rep))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"reports": out})
}

// HandleFileReview handles POST /reports/{reportID}/reviews.
func (h *ReportHandler) HandleFileReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID, ok := parseReportID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[fileReviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	rv, err := h.service.FileReview(ctx, reportID, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromReview(rv))
}

// HandleListReviews handles GET /reports/{reportID}/reviews.
func (h *ReportHandler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	reportID, ok := parseReportID(w, r)
	if !ok {
		return
	}
	reviews, err := h.service.ListReviews(r.Context(), reportID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, fromReview(rv))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"reviews": out})
}

func parseListFilter(w http.ResponseWriter, r *http.Request) (report.Filter, bool) {
	var f report.Filter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		st := report.Status(raw)
		if !st.Valid() {
			writeServiceError(w, dErrors.New(dErrors.CodeValidation, "unknown status"))
			return f, false
		}
		f.Status = &st
	}
	if raw := q.Get("category"); raw != "" {
		c := report.Category(raw)
		if !c.Valid() {
			writeServiceError(w, dErrors.New(dErrors.CodeValidation, "unknown category"))
			return f, false
		}
		f.Category = &c
	}
	if raw := q.Get("publisher_id"); raw != "" {
		publisherID, err := id.ParseUserID(raw)
		if err != nil {
			writeServiceError(w, err)
			return f, false
		}
		f.PublisherID = &publisherID
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeServiceError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
			return f, false
		}
		f.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeServiceError(w, dErrors.New(dErrors.CodeValidation, "offset must be a non-negative integer"))
			return f, false
		}
		f.Offset = n
	}
	return f, true
}

func parseReportID(w http.ResponseWriter, r *http.Request) (id.ReportID, bool) {
	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		writeServiceError(w, err)
		return id.ReportID{}, false
	}
	return reportID, true
}
