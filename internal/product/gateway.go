package product

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Fetcher resolves a product id against the external catalog.
// ok=false means the lookup failed or the product does not exist;
// callers decide how to degrade.
type Fetcher interface {
	Fetch(ctx context.Context, productID string) (Product, bool)
}

// Gateway wraps the products API. Lookups never return an error to the
// caller: timeouts, 404s and 5xx responses all collapse into "unresolved"
// so a flaky catalog cannot fail an entire cart read.
type Gateway struct {
	baseURL string
	client  *http.Client
}

func NewGateway(baseURL string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Gateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *Gateway) Fetch(ctx context.Context, productID string) (Product, bool) {
	url := fmt.Sprintf("%s/products/%s", g.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("catalog request build failed")
		return Product{}, false
	}

	res, err := g.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("catalog lookup failed")
		return Product{}, false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		log.Warn().Int("status", res.StatusCode).Str("product_id", productID).Msg("catalog returned non-OK status")
		return Product{}, false
	}

	var p Product
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("catalog response decode failed")
		return Product{}, false
	}

	return p, true
}
