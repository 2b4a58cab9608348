// Package quizlist реализует HTTP-обработчик списка тестов курса.
package quizlist

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	assessmentservice "github.com/edlatam/lms-platform/internal/services/assessment"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики списка тестов.
type Service interface {
	ListQuizzes(ctx context.Context, viewerID, courseID string) ([]*models.Quiz, error)
}

// Handler управляет HTTP-запросами списка тестов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список тестов курса
// @Description Возвращает тесты курса. Доступно записанным студентам и преподавателю курса.
// @Tags Assessments
// @Produce json
// @Param id path string true "Идентификатор курса"
// @Success 200 {object} response.Response "Список тестов"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет активной записи на курс"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении тестов"
// @Security ApiKeyAuth
// @Router /courses/{id}/quizzes [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assessment.quizlist"

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

	viewerID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || viewerID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	quizzes, err := h.service.ListQuizzes(r.Context(), viewerID, courseID)
	if err != nil {
		switch {
		case errors.Is(err, assessmentservice.ErrNotEnrolled):
			log.Info("viewer not enrolled", slog.String("course_id", courseID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("enrollment required"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("course not found", slog.String("course_id", courseID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("course not found"))
		default:
			log.Error("failed to list quizzes", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not list quizzes"))
		}
		return
	}

	log.Info("quizzes listed", slog.Int("count", len(quizzes)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"quizzes": quizzes,
	}))
}
