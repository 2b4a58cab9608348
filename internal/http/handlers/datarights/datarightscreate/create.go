// Package datarightscreate реализует HTTP-обработчик подачи запроса
// субъекта данных.
//
// Срок ответа зависит от юрисдикции: CO и BR получают 15 дней,
// остальные 30. Срок выставляет триггер базы при вставке.
package datarightscreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
)

// Service описывает интерфейс бизнес-логики подачи запроса.
type Service interface {
	CreateRequest(ctx context.Context, userID string, req models.DummyDataRights) (*models.DataRightsRequest, error)
}

// Handler управляет HTTP-запросами подачи запроса субъекта данных.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подать запрос субъекта данных
// @Description Регистрирует запрос на выгрузку, удаление или исправление персональных данных.
// @Tags Compliance
// @Accept json
// @Produce json
// @Param request body models.DummyDataRights true "Тип запроса и юрисдикция"
// @Success 201 {object} response.Response "Запрос зарегистрирован"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при регистрации запроса"
// @Security ApiKeyAuth
// @Router /users/me/data-requests [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.datarights.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyDataRights
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || userID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	request, err := h.service.CreateRequest(r.Context(), userID, req)
	if err != nil {
		log.Error("failed to create data rights request", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create request"))
		return
	}

	log.Info("data rights request created", slog.String("request_id_db", request.ID),
		slog.String("type", request.RequestType))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"request": request,
	}))
}
