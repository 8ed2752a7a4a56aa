// Package emailer dispatches rendered remitos through the EmailJS
// REST API.
package emailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/port"
)

var _ port.RemitoMailer = (*EmailJS)(nil)

const requestTimeout = 15 * time.Second

type EmailJSConfig struct {
	URL        string
	ServiceID  string
	TemplateID string
	PublicKey  string
}

type EmailJS struct {
	client *http.Client
	cfg    EmailJSConfig
}

func NewEmailJS(cfg EmailJSConfig) EmailJS {
	return EmailJS{
		client: &http.Client{Timeout: requestTimeout},
		cfg:    cfg,
	}
}

type (
	sendRequest struct {
		ServiceID      string         `json:"service_id"`
		TemplateID     string         `json:"template_id"`
		UserID         string         `json:"user_id"`
		TemplateParams templateParams `json:"template_params"`
	}

	templateParams struct {
		Number   string `json:"numero"`
		Customer string `json:"cliente"`
		Date     string `json:"fecha"`
		Total    string `json:"total"`
		Rows     string `json:"detalle"`
	}
)

// SendRemito renders the receipt into the email template parameters and
// posts it once. Failures are reported to the caller; there is no retry.
func (e EmailJS) SendRemito(ctx context.Context, r domain.Remito) error {
	const op = "EmailJS.SendRemito"
	log := slog.With("op", op)

	payload := sendRequest{
		ServiceID:  e.cfg.ServiceID,
		TemplateID: e.cfg.TemplateID,
		UserID:     e.cfg.PublicKey,
		TemplateParams: templateParams{
			Number:   r.Number,
			Customer: r.Customer,
			Date:     r.CreatedAt.Format("02/01/2006 15:04:05"),
			Total:    r.Total.StringFixed(2),
			Rows:     renderRows(r.Items),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s: unexpected status %d: %s",
			op, res.StatusCode, strings.TrimSpace(string(detail)))
	}

	log.Info("remito emailed", "number", r.Number, "customer", r.Customer)
	return nil
}

func renderRows(items []domain.CartItem) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b,
			"<tr><td>%s</td><td>%s</td><td>%d</td><td>$%s</td><td>$%s</td></tr>",
			it.Code, it.Description, it.Quantity,
			it.UnitPrice.StringFixed(2), it.Subtotal.StringFixed(2),
		)
	}
	return b.String()
}
