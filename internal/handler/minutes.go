package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/service"
	"github.com/BuzzLyutic/minutes-tracker/pkg/respond"
)

const viewLatest = "latest"

type MinutesHandler struct {
	service *service.MinutesService
	logger  *zap.Logger
}

func NewMinutesHandler(srv *service.MinutesService, logger *zap.Logger) *MinutesHandler {
	return &MinutesHandler{service: srv, logger: logger}
}

// List serves the Notes view. With ?view=latest each day keeps only the
// newest entry per task.
func (h *MinutesHandler) List(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view != "" && view != viewLatest {
		respond.Error(w, r, http.StatusBadRequest, "view must be empty or latest")
		return
	}

	list, err := h.service.ListMinutesForTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	if view == viewLatest {
		for i := range list {
			list[i].Snapshots = service.LatestPerTask(list[i].Snapshots)
		}
	}
	respond.JSON(w, r, http.StatusOK, list)
}

func (h *MinutesHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetByTeamAndDate(r.Context(), chi.URLParam(r, "teamID"), chi.URLParam(r, "date"))
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, m)
}

func (h *MinutesHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var patch model.MinutesPatch
	if err := respond.Decode(w, r, &patch); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.service.UpdateDetails(r.Context(), ActorFrom(r.Context()),
		chi.URLParam(r, "teamID"), chi.URLParam(r, "date"), patch)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, m)
}
