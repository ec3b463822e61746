package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
	"github.com/BuzzLyutic/minutes-tracker/internal/service"
	"github.com/BuzzLyutic/minutes-tracker/pkg/respond"
)

func handleErrors(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		respond.Error(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "already exists")
	case errors.Is(err, respond.ErrEmptyBody):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	default:
		logger.Error("internal error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
