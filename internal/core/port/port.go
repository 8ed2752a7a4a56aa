package port

import (
	"context"

	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
)

type CatalogLoader interface {
	Load(context.Context) ([]domain.Product, error)
}

type PolicyLoader interface {
	Load(context.Context) (domain.PolicyDocument, error)
}

type StockSyncer interface {
	SyncStock(context.Context, []domain.CartItem) ([]domain.StockUpdate, error)
}

type RemitoMailer interface {
	SendRemito(context.Context, domain.Remito) error
}

type RemitoStorage interface {
	StoreRemito(context.Context, domain.Remito) error
}

type OrderEventsProducer interface {
	ProduceRemito(context.Context, domain.Remito) error
}
