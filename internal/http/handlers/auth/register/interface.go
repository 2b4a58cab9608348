package register

import (
	"context"

	"github.com/edlatam/lms-platform/internal/models"
)

type Service interface {
	Register(ctx context.Context, req models.DummyRegister) (string, error)
}
