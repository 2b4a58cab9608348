package login

import (
	"context"

	"github.com/edlatam/lms-platform/internal/models"
)

type Service interface {
	Login(ctx context.Context, req models.DummyLogin) (*models.User, error)
}
