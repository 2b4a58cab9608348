// Package subscriptioncreate реализует HTTP-обработчик оформления подписки.
//
// Подписка стартует в trialing, если план даёт пробные дни, иначе сразу
// в active с выставленным счётом за первый период.
package subscriptioncreate

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
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики оформления подписки.
type Service interface {
	Subscribe(ctx context.Context, userID string, req models.DummySubscribe) (*models.Subscription, error)
}

// Handler управляет HTTP-запросами оформления подписки.
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
// @Summary Оформить подписку
// @Description Создает подписку на тарифный план. У пользователя может быть только одна открытая подписка.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param request body models.DummySubscribe true "Машинное имя плана"
// @Success 201 {object} response.Response "Подписка оформлена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "План не найден или неактивен"
// @Failure 409 {object} response.ErrorResponse "Открытая подписка уже существует"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при оформлении"
// @Security ApiKeyAuth
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySubscribe
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

	sub, err := h.service.Subscribe(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyExists):
			log.Info("open subscription already exists", slog.String("user_id", userID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("subscription already exists"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("plan not found", slog.String("plan_code", req.PlanCode))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("plan not found"))
		default:
			log.Error("failed to subscribe", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create subscription"))
		}
		return
	}

	log.Info("subscription created", slog.String("subscription_id", sub.ID),
		slog.String("status", sub.Status))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": sub,
	}))
}
