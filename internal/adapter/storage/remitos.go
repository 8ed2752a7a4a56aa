package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/port"
)

var _ port.RemitoStorage = (*RemitosRepository)(nil)

type remitoItemRow struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

type RemitosRepository struct {
	sqldb sqldb
}

func NewRemitosRepository(sqldb sqldb) RemitosRepository {
	return RemitosRepository{sqldb}
}

// StoreRemito persists the issued receipt. The number encodes the
// creation second, so replaying the same remito is a no-op.
func (r RemitosRepository) StoreRemito(
	ctx context.Context, v domain.Remito,
) error {
	const op = "RemitosRepository.StoreRemito"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	items := make([]remitoItemRow, len(v.Items))
	for i, it := range v.Items {
		items[i] = remitoItemRow{
			Code:        it.Code,
			Description: it.Description,
			UnitPrice:   it.UnitPrice.String(),
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal.String(),
		}
	}
	itemsB, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO remitos (number, customer, created_at, items, total)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (number) DO NOTHING;
	`
	_, err = r.sqldb.ExecContext(ctx, query,
		v.Number, v.Customer, v.CreatedAt, string(itemsB), v.Total,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}
	return nil
}
