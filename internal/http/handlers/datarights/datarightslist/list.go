// Package datarightslist реализует HTTP-обработчик списка запросов
// субъекта данных.
package datarightslist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
)

// Service описывает интерфейс бизнес-логики списка запросов.
type Service interface {
	ListMine(ctx context.Context, userID string, limit, offset int) ([]*models.DataRightsRequest, error)
}

// Handler управляет HTTP-запросами списка запросов субъекта данных.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список запросов субъекта данных
// @Description Возвращает запросы текущего пользователя, новые первыми.
// @Tags Compliance
// @Produce json
// @Param limit query int false "Размер страницы, по умолчанию 20"
// @Param offset query int false "Смещение страницы"
// @Success 200 {object} response.Response "Список запросов"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении запросов"
// @Security ApiKeyAuth
// @Router /users/me/data-requests [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.datarights.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || userID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	requests, err := h.service.ListMine(r.Context(), userID, limit, offset)
	if err != nil {
		log.Error("failed to list data rights requests", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list requests"))
		return
	}

	log.Info("data rights requests listed", slog.Int("count", len(requests)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"requests": requests,
	}))
}
