package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/service"
	"github.com/BuzzLyutic/minutes-tracker/pkg/respond"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewTask
	if err := respond.Decode(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	idempKey := r.Header.Get(HeaderIdempotencyKey)
	task, snap, err := h.service.Create(r.Context(), ActorFrom(r.Context()), req, idempKey)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	if snap.ID != "" {
		h.logSnapshot(snap)
	} else {
		h.logger.Info("create replayed", zap.String("task_id", task.ID), zap.String("idempotency_key", idempKey))
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%s", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TaskFilter{
		TeamID:   q.Get("teamId"),
		MemberID: q.Get("memberId"),
	}
	if v := q.Get("includeCompleted"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "includeCompleted must be a boolean")
			return
		}
		filter.IncludeCompleted = include
	}

	tasks, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.TaskPatch
	if err := respond.Decode(w, r, &patch); err != nil {
		h.badRequest(w, r, err)
		return
	}

	task, snap, err := h.service.Update(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	h.logSnapshot(snap)

	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Delete(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	h.logSnapshot(snap)

	respond.NoContent(w)
}

func (h *TaskHandler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug("failed to decode json", zap.Error(err))
	respond.Error(w, r, http.StatusBadRequest, err.Error())
}

func (h *TaskHandler) logSnapshot(s model.Snapshot) {
	h.logger.Info("task change recorded",
		zap.String("change", string(s.ChangeType)),
		zap.String("task_id", s.TaskID),
		zap.String("minutes_id", s.MinutesID),
		zap.String("snapshot_id", s.ID),
		zap.Int64("seq", s.Seq),
		zap.String("actor_id", s.ActorID),
		zap.Time("recorded_at", s.RecordedAt),
	)
}
