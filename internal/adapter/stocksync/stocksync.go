// Package stocksync talks to the remote stock reconciliation endpoint.
package stocksync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/port"
	"github.com/nicolasbarcena/KazaroPedidos/pkg/retry"
)

var _ port.StockSyncer = (*Client)(nil)

const (
	requestTimeout = 10 * time.Second
	maxAttempts    = 3
	retryDelay     = 200 * time.Millisecond
)

// Wire shapes of the reconciliation contract. The endpoint speaks the
// original spreadsheet macro's field names.
type (
	syncRequest struct {
		Items []syncItem `json:"items"`
	}

	syncItem struct {
		Code     string `json:"code"`
		Quantity int    `json:"cantidad"`
	}

	syncResponse struct {
		Success bool          `json:"success"`
		Updated []syncUpdated `json:"updated"`
		Error   string        `json:"error"`
	}

	syncUpdated struct {
		Code  string `json:"code"`
		Stock int    `json:"stock"`
	}
)

type Client struct {
	client *http.Client
	url    string
}

func New(url string) Client {
	return Client{
		client: &http.Client{Timeout: requestTimeout},
		url:    url,
	}
}

// SyncStock submits the finalized items and returns the endpoint's
// authoritative stock figures. The merge on the remote side is
// idempotent, so the call retries transient failures.
func (c Client) SyncStock(
	ctx context.Context, items []domain.CartItem,
) ([]domain.StockUpdate, error) {
	const op = "stocksync.Client.SyncStock"

	body, err := json.Marshal(toWire(items))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rc := retry.Config{
		MaxAttempts: maxAttempts,
		Backoff:     retry.ExponentialBackoff(retryDelay),
	}
	res, err := retry.DoWithResult(ctx, rc, func() (syncResponse, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !res.Success {
		return nil, fmt.Errorf("%s: endpoint rejected update: %s", op, res.Error)
	}

	updates := make([]domain.StockUpdate, 0, len(res.Updated))
	for _, u := range res.Updated {
		updates = append(updates, domain.StockUpdate{Code: u.Code, Stock: u.Stock})
	}
	return updates, nil
}

func (c Client) post(ctx context.Context, body []byte) (syncResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.url, bytes.NewReader(body),
	)
	if err != nil {
		return syncResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return syncResponse{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return syncResponse{}, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	var sr syncResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return syncResponse{}, err
	}
	return sr, nil
}

func toWire(items []domain.CartItem) syncRequest {
	req := syncRequest{Items: make([]syncItem, len(items))}
	for i, it := range items {
		req.Items[i] = syncItem{Code: it.Code, Quantity: it.Quantity}
	}
	return req
}
