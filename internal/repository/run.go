package repository

import (
	"context"
	"errors"

	"github.com/synckit/synckit/internal/synckit"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// RunRepository stores workflow run history.
type RunRepository interface {
	Create(ctx context.Context, rec *synckit.RunRecord) error
	Get(ctx context.Context, id string) (*synckit.RunRecord, error)
	List(ctx context.Context, limit int) ([]*synckit.RunRecord, error)
}
