package port

import (
	"context"

	"github.com/rl1809/supply-ledger/internal/core/domain"
)

type EventPublisher interface {
	PublishStockAdjusted(ctx context.Context, event domain.StockEvent) error
}
