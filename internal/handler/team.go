package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/service"
	"github.com/BuzzLyutic/minutes-tracker/pkg/respond"
)

type TeamHandler struct {
	service *service.TeamService
	logger  *zap.Logger
}

func NewTeamHandler(srv *service.TeamService, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{service: srv, logger: logger}
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.List(r.Context())
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, teams)
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.Get(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, team)
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.NewTeam
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	team, err := h.service.Create(r.Context(), ActorFrom(r.Context()), req)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/teams/%s", team.ID))
	respond.JSON(w, r, http.StatusCreated, team)
}

func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.TeamPatch
	if err := respond.Decode(w, r, &patch); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	team, err := h.service.Update(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "teamID"), patch)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, team)
}
