// Package sheets loads the product catalog from a published
// spreadsheet CSV export.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/port"
)

var _ port.CatalogLoader = (*CatalogLoader)(nil)

const fetchTimeout = 10 * time.Second

type CatalogLoader struct {
	client *http.Client
	url    string
}

func NewCatalogLoader(url string) CatalogLoader {
	return CatalogLoader{
		client: &http.Client{Timeout: fetchTimeout},
		url:    url,
	}
}

// Load fetches and parses the sheet. The first row names the columns
// case-insensitively; missing numeric fields default to 0, missing text
// fields to "". Row order is preserved.
func (l CatalogLoader) Load(ctx context.Context) ([]domain.Product, error) {
	const op = "CatalogLoader.Load"
	log := slog.With("op", op)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrSourceUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: unexpected status %d",
			op, domain.ErrSourceUnavailable, res.StatusCode)
	}

	r := csv.NewReader(res.Body)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrSourceUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w: empty sheet", op, domain.ErrSourceUnavailable)
	}

	cols := headerIndex(rows[0])
	ps := make([]domain.Product, 0, len(rows)-1)
	for _, row := range rows[1:] {
		p := parseRow(row, cols)
		if p.Code == "" && p.Description == "" {
			continue
		}
		ps = append(ps, p)
	}

	log.Info("catalog loaded", "rows", len(ps))
	return ps, nil
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func parseRow(row []string, cols map[string]int) domain.Product {
	return domain.Product{
		Code:        field(row, cols, "code"),
		Description: field(row, cols, "description"),
		Category:    field(row, cols, "category"),
		Price:       parsePrice(field(row, cols, "price")),
		Stock:       parseStock(field(row, cols, "stock")),
	}
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parsePrice coerces at the boundary: anything unparsable or negative
// becomes zero, so garbage never reaches subtotal arithmetic.
func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func parseStock(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
