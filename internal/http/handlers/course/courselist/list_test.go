package courselist

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/edlatam/lms-platform/internal/models"
)

// MockService реализует интерфейс courselist.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ListPublished(ctx context.Context, limit, offset int) ([]*models.Course, error) {
	args := m.Called(ctx, limit, offset)
	if res := args.Get(0); res != nil {
		return res.([]*models.Course), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	courses := []*models.Course{
		{ID: "11111111-1111-4111-8111-111111111111", Title: "Go desde cero", Slug: "go-desde-cero", IsPublished: true},
		{ID: "22222222-2222-4222-8222-222222222222", Title: "SQL avanzado", Slug: "sql-avanzado", IsPublished: true},
	}

	tests := []struct {
		name           string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "каталог с параметрами страницы",
			url:  "/courses?limit=2&offset=4",
			setupMock: func(m *MockService) {
				m.On("ListPublished", mock.Anything, 2, 4).Return(courses, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"list_count":2`,
		},
		{
			name: "некорректный limit заменяется значением по умолчанию",
			url:  "/courses?limit=abc&offset=-3",
			setupMock: func(m *MockService) {
				m.On("ListPublished", mock.Anything, 20, 0).Return(courses, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"title":"Go desde cero"`,
		},
		{
			name: "пустой каталог",
			url:  "/courses",
			setupMock: func(m *MockService) {
				m.On("ListPublished", mock.Anything, 20, 0).Return([]*models.Course{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"list_count":0`,
		},
		{
			name: "ошибка сервиса каталога",
			url:  "/courses",
			setupMock: func(m *MockService) {
				m.On("ListPublished", mock.Anything, 20, 0).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not list courses"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
