package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "civicwatch/pkg/domain"
	"civicwatch/pkg/platform/httputil"
	"civicwatch/pkg/requestcontext"

	"civicwatch/internal/report"
)

// ModerationService is the slice of the moderation service the handler needs.
type ModerationService interface {
	Decide(ctx context.Context, reportID id.ReportID, newStatus report.Status, note string) (*report.Report, error)
	ResolveReview(ctx context.Context, reportID id.ReportID, reviewID id.ReviewID, takeDown bool, note string) (*report.Review, error)
}

// ModerationHandler wires moderation endpoints to the moderation service.
type ModerationHandler struct {
	service ModerationService
	logger  *slog.Logger
}

func NewModerationHandler(service ModerationService, logger *slog.Logger) *ModerationHandler {
	return &ModerationHandler{service: service, logger: logger}
}

type decisionRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type resolveReviewRequest struct {
	TakeDown bool   `json:"take_down"`
	Note     string `json:"note"`
}

// HandleDecide handles POST /reports/{reportID}/decision.
func (h *ModerationHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	reportID, ok := parseReportID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[decisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decided, err := h.service.Decide(ctx, reportID, report.Status(req.Status), req.Note)
	if err != nil {
		h.logger.WarnContext(ctx, "decision rejected",
			"report_id", reportID.String(),
			"status", req.Status,
			"error", err,
			"request_id", requestID,
		)
		writeServiceError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "decision recorded",
		"report_id", reportID.String(),
		"status", string(decided.Status),
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, fromReport(decided))
}

// HandleResolveReview handles POST /reports/{reportID}/reviews/{reviewID}/resolve.
func (h *ModerationHandler) HandleResolveReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	reportID, ok := parseReportID(w, r)
	if !ok {
		return
	}
	reviewID, err := id.ParseReviewID(chi.URLParam(r, "reviewID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[resolveReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resolved, err := h.service.ResolveReview(ctx, reportID, reviewID, req.TakeDown, req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "review resolved",
		"review_id", reviewID.String(),
		"report_id", reportID.String(),
		"take_down", req.TakeDown,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, fromReview(resolved))
}
