package memory

import (
	"context"

	"github.com/garyjia/pto-workflow/internal/application/port"
)

// TxManager runs fn directly. The memory stores are individually atomic and
// have nothing to roll back.
type TxManager struct{}

// WithTransaction implements port.TransactionManager
func (TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ port.TransactionManager = TxManager{}
