package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/port"
	"github.com/nicolasbarcena/KazaroPedidos/pkg/schema"
)

var _ port.OrderEventsProducer = (*RemitosProducer)(nil)

// RemitosProducer publishes finalized order receipts to the
// order-events topic, keyed by remito number.
type RemitosProducer struct {
	cl      ProducerClient
	encoder Encoder
}

func NewRemitosProducer(opts ...ProducerOpt) (RemitosProducer, error) {
	const op = "NewRemitosProducer"

	if len(opts) != 2 {
		panic(fmt.Errorf("%s: %w", op, ErrTooFewOpts)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return RemitosProducer{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	return RemitosProducer{options.cl, options.encoder}, nil
}

func (p RemitosProducer) Close() {
	const op = "RemitosProducer.Close"
	log := slog.With("op", op)
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p RemitosProducer) ProduceRemito(
	ctx context.Context, r domain.Remito,
) error {
	const op = "RemitosProducer.ProduceRemito"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rec, err := p.createRecord(r)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res := p.cl.ProduceSync(ctx, rec)
	if err := res.FirstErr(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p RemitosProducer) createRecord(r domain.Remito) (*kgo.Record, error) {
	s := p.toSchema(r)
	v, err := p.encoder.Encode(s)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{Key: []byte(s.Number), Value: v}, nil
}

func (p RemitosProducer) toSchema(r domain.Remito) (s schema.RemitoV1) {
	s.Number = r.Number
	s.Customer = r.Customer
	s.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	s.Total = r.Total.InexactFloat64()

	s.Items = make([]schema.RemitoItemV1, len(r.Items))
	for i, it := range r.Items {
		s.Items[i] = schema.RemitoItemV1{
			Code:        it.Code,
			Description: it.Description,
			UnitPrice:   it.UnitPrice.InexactFloat64(),
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal.InexactFloat64(),
		}
	}
	return s
}
