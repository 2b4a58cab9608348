package submissiongrade

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// MockService реализует интерфейс submissiongrade.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Grade(ctx context.Context, instructorID, submissionID string, req models.DummyGrade) error {
	args := m.Called(ctx, instructorID, submissionID, req)
	return args.Error(0)
}

func TestGradeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	instructorID := "2f7c9a14-5d3e-4b8f-a1c2-d3e4f5a6b7c8"
	submissionID := "2c1d0e9f-8a7b-4c6d-9e5f-4a3b2c1d0e9f"

	tests := []struct {
		name           string
		urlID          string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "успешная оценка попытки",
			urlID: submissionID,
			body:  `{"score":85.5}`,
			setupMock: func(m *MockService) {
				m.On("Grade", mock.Anything, instructorID, submissionID, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"graded":true`,
		},
		{
			name:           "некорректный id в URL",
			urlID:          "abc",
			body:           `{"score":85.5}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid submission id"`,
		},
		{
			name:           "некорректный JSON",
			urlID:          submissionID,
			body:           `{"score":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "балл выше ста",
			urlID:          submissionID,
			body:           `{"score":120}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field Score must be at most 100",
		},
		{
			name:  "попытка не сдана",
			urlID: submissionID,
			body:  `{"score":85.5}`,
			setupMock: func(m *MockService) {
				m.On("Grade", mock.Anything, instructorID, submissionID, mock.Anything).
					Return(repository.ErrInvalidTransition)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"submission is not submitted"`,
		},
		{
			name:  "чужая попытка выглядит несуществующей",
			urlID: submissionID,
			body:  `{"score":85.5}`,
			setupMock: func(m *MockService) {
				m.On("Grade", mock.Anything, instructorID, submissionID, mock.Anything).
					Return(repository.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"submission not found"`,
		},
		{
			name:  "ошибка сервиса оценки",
			urlID: submissionID,
			body:  `{"score":85.5}`,
			setupMock: func(m *MockService) {
				m.On("Grade", mock.Anything, instructorID, submissionID, mock.Anything).
					Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not grade submission"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/submissions/"+tt.urlID+"/grade", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.urlID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, instructorID))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
