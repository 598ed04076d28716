package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPRateProvider fetches a currency's rate table from a JSON API that serves
// GET {baseURL}/{currency} as {"rates": {"EUR": 0.92, ...}}.
type HTTPRateProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRateProvider(baseURL string, client *http.Client) *HTTPRateProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRateProvider{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type rateTable struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Rates returns every quoted rate for base, keyed by target currency.
func (p *HTTPRateProvider) Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+base, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rates for %s: unexpected status %d", base, resp.StatusCode)
	}

	var table rateTable
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode rates for %s: %w", base, err)
	}
	if len(table.Rates) == 0 {
		return nil, fmt.Errorf("rate table for %s is empty", base)
	}
	return table.Rates, nil
}
