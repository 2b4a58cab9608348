// Package ordercreate реализует HTTP-обработчик создания заказа на курс.
//
// Handler принимает JSON-запрос с идентификатором курса, валидирует его
// и вызывает бизнес-логику создания заказа. Бесплатный курс и повторная
// покупка отклоняются до создания записи.
package ordercreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	orderservice "github.com/edlatam/lms-platform/internal/services/order"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики создания заказа.
type Service interface {
	Create(ctx context.Context, userID string, req models.DummyOrder) (*models.Order, error)
}

// Handler управляет HTTP-запросами создания заказа.
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
// @Summary Создать заказ на курс
// @Description Создает ожидающий оплаты заказ с фиксированной ценой курса и номером вида ORD-ГГГГ-NNNNNN.
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body models.DummyOrder true "Идентификатор курса"
// @Success 201 {object} response.Response "Заказ создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 409 {object} response.ErrorResponse "Курс бесплатный или уже куплен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при создании заказа"
// @Security ApiKeyAuth
// @Router /orders [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.order.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyOrder
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

	order, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, orderservice.ErrCourseFree):
			log.Info("order for free course", slog.String("course_id", req.CourseID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("course is free, enroll directly"))
		case errors.Is(err, repository.ErrAlreadyExists):
			log.Info("course already purchased", slog.String("course_id", req.CourseID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("course already purchased or enrolled"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("course not found", slog.String("course_id", req.CourseID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("course not found"))
		default:
			log.Error("failed to create order", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create order"))
		}
		return
	}

	log.Info("order created", slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"order": order,
	}))
}
