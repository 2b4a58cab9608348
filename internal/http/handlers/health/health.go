// Package health реализует проверку живости HTTP API.
package health

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/edlatam/lms-platform/internal/http/response"
)

// Handler отвечает на запросы проверки живости.
type Handler struct{}

// New создает новый Handler.
func New() *Handler {
	return &Handler{}
}

// ServeHTTP godoc
// @Summary Проверка живости сервиса
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response "Сервис работает"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": "healthy",
	}))
}
