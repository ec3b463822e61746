package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/service"
	"github.com/BuzzLyutic/minutes-tracker/pkg/respond"
)

type Services struct {
	Tasks   *service.TaskService
	Minutes *service.MinutesService
	Teams   *service.TeamService
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(svc Services, db Pinger, logger *zap.Logger) http.Handler {
	tasks := NewTaskHandler(svc.Tasks, logger)
	minutes := NewMinutesHandler(svc.Minutes, logger)
	teams := NewTeamHandler(svc.Teams, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", health(db))

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", tasks.List)
			r.Get("/{id}", tasks.Get)
			r.Group(func(r chi.Router) {
				r.Use(RequireUser)
				r.Post("/", tasks.Create)
				r.Patch("/{id}", tasks.Update)
				r.Delete("/{id}", tasks.Delete)
			})
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", teams.List)
			r.With(RequireUser).Post("/", teams.Create)

			r.Route("/{teamID}", func(r chi.Router) {
				r.Get("/", teams.Get)
				r.With(RequireUser).Patch("/", teams.Update)
				r.Get("/minutes", minutes.List)
				r.Get("/minutes/{date}", minutes.Get)
				r.With(RequireUser).Put("/minutes/{date}", minutes.UpdateDetails)
			})
		})
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			respond.Error(w, r, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
