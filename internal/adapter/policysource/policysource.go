// Package policysource fetches the supervisores.json policy document.
package policysource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/port"
)

var _ port.PolicyLoader = (*Loader)(nil)

const fetchTimeout = 10 * time.Second

// Loader reads the policy document from an HTTP URL or, for
// deployments that ship the document alongside the binary, a local
// file path.
type Loader struct {
	client *http.Client
	src    string
}

func New(src string) Loader {
	return Loader{
		client: &http.Client{Timeout: fetchTimeout},
		src:    src,
	}
}

func (l Loader) Load(ctx context.Context) (domain.PolicyDocument, error) {
	const op = "policysource.Loader.Load"

	data, err := l.read(ctx)
	if err != nil {
		return domain.PolicyDocument{},
			fmt.Errorf("%s: %w: %w", op, domain.ErrSourceUnavailable, err)
	}

	var doc domain.PolicyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.PolicyDocument{},
			fmt.Errorf("%s: %w: %w", op, domain.ErrSourceUnavailable, err)
	}
	return doc, nil
}

func (l Loader) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(l.src, "http://") && !strings.HasPrefix(l.src, "https://") {
		return os.ReadFile(l.src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.src, nil)
	if err != nil {
		return nil, err
	}

	res, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	return io.ReadAll(res.Body)
}
