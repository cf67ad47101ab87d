package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"skilld/internal/bus"
	"skilld/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Skills() []types.SkillStatus
	Status() types.StatusResponse
	Activate(id string) (int, error)
	Deactivate(id string) (int, error)
	DeactivateAllExcept(id string) (int, error)
	Converse(ctx context.Context, id string, utterances []string, lang string) (bool, error)
	UpdateNow() error
	Ready() bool
	SubscribeEvents(h func(bus.Message)) func()
}

const defaultLang = "en-us"

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods:   orDefault(corsAllowedMethods, []string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			AllowedHeaders:   orDefault(corsAllowedHeaders, []string{"Accept", "Content-Type", "X-Request-Id"}),
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/skills", listSkills(svc))
	r.Get("/status", status(svc))
	r.Route("/skills/{id}", func(r chi.Router) {
		r.Post("/activate", action("activate", svc.Activate))
		r.Post("/deactivate", action("deactivate", svc.Deactivate))
		r.Post("/keep", action("keep", svc.DeactivateAllExcept))
		r.Post("/converse", converse(svc))
	})
	r.Post("/update", updateNow(svc))
	r.Get("/events", eventsHandler(svc))

	health := newHealthHandler(svc)
	r.Get("/healthz", health.LiveEndpoint)
	r.Get("/readyz", health.ReadyEndpoint)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

// listSkills godoc
// @Summary  List skills
// @Tags     skills
// @Produce  json
// @Success  200 {object} types.SkillsResponse
// @Router   /skills [get]
func listSkills(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.SkillsResponse{Skills: svc.Skills()})
	}
}

// status godoc
// @Summary  Manager status
// @Tags     status
// @Produce  json
// @Success  200 {object} types.StatusResponse
// @Router   /status [get]
func status(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	}
}

// action godoc
// @Summary  Activate, deactivate or keep a skill
// @Tags     skills
// @Produce  json
// @Param    id path string true "skill id (\"all\" for activate)"
// @Success  200 {object} types.ActionResponse
// @Failure  404 {object} types.ErrorResponse
// @Router   /skills/{id}/activate [post]
// @Router   /skills/{id}/deactivate [post]
// @Router   /skills/{id}/keep [post]
func action(name string, fn func(string) (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		n, err := fn(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ActionResponse{Action: name, Skill: id, Affected: n})
	}
}

// converse godoc
// @Summary  Offer utterances to a skill
// @Tags     skills
// @Accept   json
// @Produce  json
// @Param    id   path string                true "skill id"
// @Param    body body types.ConverseRequest true "utterances"
// @Success  200 {object} types.ConverseResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  404 {object} types.ErrorResponse
// @Failure  409 {object} types.ErrorResponse
// @Failure  502 {object} types.ErrorResponse
// @Router   /skills/{id}/converse [post]
func converse(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ConverseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(req.Utterances) == 0 {
			writeJSONError(w, http.StatusBadRequest, "utterances are required")
			return
		}
		if req.Lang == "" {
			req.Lang = defaultLang
		}
		id := chi.URLParam(r, "id")

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if converseTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, converseTimeout)
			defer tcancel()
		}
		ok, err := svc.Converse(ctx, id, req.Utterances, req.Lang)
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ConverseResponse{SkillID: id, Result: ok})
	}
}

// updateNow godoc
// @Summary  Run an update pass on the next scan
// @Tags     update
// @Produce  json
// @Success  202 {object} types.ActionResponse
// @Failure  409 {object} types.ErrorResponse
// @Router   /update [post]
func updateNow(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.UpdateNow(); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, types.ActionResponse{Action: "update"})
	}
}
