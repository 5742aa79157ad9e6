package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	id "civicwatch/pkg/domain"
	"civicwatch/pkg/platform/httputil"
	"civicwatch/pkg/requestcontext"

	"civicwatch/internal/station"
	"civicwatch/internal/user"
)

// StationService is the slice of the station service the handler needs.
type StationService interface {
	Create(ctx context.Context, in station.CreateInput) (*station.Station, error)
	Get(ctx context.Context, stationID id.StationID) (*station.Station, error)
	List(ctx context.Context, includeInactive bool) ([]*station.Station, error)
	Update(ctx context.Context, stationID id.StationID, in station.UpdateInput) (*station.Station, error)
	SetActive(ctx context.Context, stationID id.StationID, active bool) error
}

// StationHandler wires station administration endpoints to the station
// service.
type StationHandler struct {
	service StationService
	logger  *slog.Logger
}

func NewStationHandler(service StationService, logger *slog.Logger) *StationHandler {
	return &StationHandler{service: service, logger: logger}
}

type createStationRequest struct {
	Name          string   `json:"name"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	ContactEmails []string `json:"contact_emails"`
	ContactPhone  string   `json:"contact_phone"`
}

type updateStationRequest struct {
	Name          *string   `json:"name"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	ContactEmails *[]string `json:"contact_emails"`
	ContactPhone  *string   `json:"contact_phone"`
}

type stationResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	Active        bool       `json:"active"`
	ContactEmails []string   `json:"contact_emails,omitempty"`
	ContactPhone  string     `json:"contact_phone,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

func fromStation(st *station.Station) stationResponse {
	return stationResponse{
		ID:            st.ID.String(),
		Name:          st.Name,
		Latitude:      st.Latitude,
		Longitude:     st.Longitude,
		Active:        st.Active,
		ContactEmails: st.ContactEmails,
		ContactPhone:  st.ContactPhone,
		CreatedAt:     st.CreatedAt,
		DeactivatedAt: st.DeactivatedAt,
	}
}

// HandleList handles GET /stations. Admins can pass include_inactive=true to
// see deactivated stations as well.
func (h *StationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	includeInactive := r.URL.Query().Get("include_inactive") == "true" &&
		requestcontext.UserRole(ctx) == string(user.RoleAdmin)

	stations, err := h.service.List(ctx, includeInactive)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]stationResponse, 0, len(stations))
	for _, st := range stations {
		out = append(out, fromStation(st))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"stations": out})
}

// HandleCreate handles POST /stations.
func (h *StationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[createStationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	st, err := h.service.Create(ctx, station.CreateInput{
		Name:          req.Name,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		ContactEmails: req.ContactEmails,
		ContactPhone:  req.ContactPhone,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromStation(st))
}

// HandleGet handles GET /stations/{stationID}.
func (h *StationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	stationID, ok := parseStationID(w, r)
	if !ok {
		return
	}
	st, err := h.service.Get(r.Context(), stationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromStation(st))
}

// HandleUpdate handles PATCH /stations/{stationID}.
func (h *StationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stationID, ok := parseStationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[updateStationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	st, err := h.service.Update(ctx, stationID, station.UpdateInput{
		Name:          req.Name,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		ContactEmails: req.ContactEmails,
		ContactPhone:  req.ContactPhone,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromStation(st))
}

// HandleDeactivate handles DELETE /stations/{stationID}. Deactivation is
// soft; assigned reports keep their station.
func (h *StationHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// HandleReactivate handles POST /stations/{stationID}/activate.
func (h *StationHandler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *StationHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	stationID, ok := parseStationID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetActive(r.Context(), stationID, active); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseStationID(w http.ResponseWriter, r *http.Request) (id.StationID, bool) {
	stationID, err := id.ParseStationID(chi.URLParam(r, "stationID"))
	if err != nil {
		writeServiceError(w, err)
		return id.StationID{}, false
	}
	return stationID, true
}
