// Package quizcreate реализует HTTP-обработчик создания теста курса.
package quizcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики создания теста.
type Service interface {
	CreateQuiz(ctx context.Context, instructorID, courseID string, req models.DummyQuiz) (string, error)
}

// Handler управляет HTTP-запросами создания теста.
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
// @Summary Создать тест курса
// @Description Создает тест для курса или его урока. Доступно преподавателю курса.
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Идентификатор курса"
// @Param request body models.DummyQuiz true "Данные теста"
// @Success 201 {object} response.Response "Тест создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор или JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Курс или урок не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при создании теста"
// @Security ApiKeyAuth
// @Router /courses/{id}/quizzes [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assessment.quizcreate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	courseID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(courseID); err != nil {
		log.Error("invalid course id", slog.String("course_id", courseID))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid course id"))
		return
	}

	var req models.DummyQuiz
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

	instructorID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || instructorID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	quizID, err := h.service.CreateQuiz(r.Context(), instructorID, courseID, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("course or lesson not found", slog.String("course_id", courseID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("course not found"))
			return
		}
		log.Error("failed to create quiz", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create quiz"))
		return
	}

	log.Info("quiz created", slog.String("quiz_id", quizID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"quiz_id": quizID,
	}))
}
