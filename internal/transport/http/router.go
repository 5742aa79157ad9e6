// Package httptransport is the thin route layer: chi routing, middleware
// assembly, and JSON mapping. All business rules live in the services.
package httptransport

import (
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"civicwatch/pkg/platform/httputil"
	authmw "civicwatch/pkg/platform/middleware/auth"
	"civicwatch/pkg/platform/middleware/metadata"
	"civicwatch/pkg/platform/middleware/requestid"
	"civicwatch/pkg/platform/middleware/requesttime"

	"civicwatch/internal/ratelimit"
	"civicwatch/internal/user"
)

// Deps collects everything the router mounts.
type Deps struct {
	Logger     *slog.Logger
	Validator  authmw.TokenValidator
	Reports    *ReportHandler
	Moderation *ModerationHandler
	Auth       *AuthHandler
	Stations   *StationHandler
}

// NewRouter assembles the full route tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	optional := authmw.OptionalAuth(d.Validator, d.Logger)
	required := authmw.RequireAuth(d.Validator, d.Logger)
	moderatorOnly := authmw.RequireRole(string(user.RoleModerator), string(user.RoleAdmin))
	adminOnly := authmw.RequireRole(string(user.RoleAdmin))

	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth/code", func(r chi.Router) {
		r.Post("/request", d.Auth.HandleRequestCode)
		r.Post("/verify", d.Auth.HandleVerifyCode)
	})

	r.Route("/reports", func(r chi.Router) {
		r.With(optional).Get("/", d.Reports.HandleList)
		r.With(optional).Get("/{reportID}", d.Reports.HandleGet)
		r.With(optional).Post("/{reportID}/share", d.Reports.HandleShare)

		r.Group(func(r chi.Router) {
			r.Use(required)
			r.Post("/", d.Reports.HandleSubmit)
			r.Patch("/{reportID}", d.Reports.HandleEdit)
			r.Delete("/{reportID}", d.Reports.HandleDelete)
			r.Post("/{reportID}/reviews", d.Reports.HandleFileReview)

			r.Group(func(r chi.Router) {
				r.Use(moderatorOnly)
				r.Get("/{reportID}/reviews", d.Reports.HandleListReviews)
				r.Post("/{reportID}/decision", d.Moderation.HandleDecide)
				r.Post("/{reportID}/reviews/{reviewID}/resolve", d.Moderation.HandleResolveReview)
			})
		})
	})

	r.Route("/stations", func(r chi.Router) {
		r.With(optional).Get("/", d.Stations.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(required, adminOnly)
			r.Post("/", d.Stations.HandleCreate)
			r.Get("/{stationID}", d.Stations.HandleGet)
			r.Patch("/{stationID}", d.Stations.HandleUpdate)
			r.Delete("/{stationID}", d.Stations.HandleDeactivate)
			r.Post("/{stationID}/activate", d.Stations.HandleReactivate)
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError renders a service error, translating rate-limit
// denials into a 429 with a Retry-After hint.
func writeServiceError(w http.ResponseWriter, err error) {
	var denied *ratelimit.DeniedError
	if errors.As(err, &denied) {
		httputil.WriteRateLimited(w, err, int(math.Ceil(denied.Result.RetryAfter.Seconds())))
		return
	}
	httputil.WriteError(w, err)
}
