/**
 * @description
 * This package provides clients for the public exchange-rate providers the
 * service consults, plus an ordered fallback chain over them. Providers are
 * tried in a fixed order; the first one to return a usable (non-zero) rate
 * wins, and when every provider fails the chain hands back a fixed
 * last-resort rate so transaction capture never blocks on the internet.
 *
 * @dependencies
 * - context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - github.com/shopspring/decimal: Rate arithmetic.
 */
package ratesclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FallbackRate is the hardcoded USD→ZAR rate used when every provider is
// unreachable. SourceFallback tags rate rows produced this way so operators
// can tell a stale constant from a live observation.
var FallbackRate = decimal.RequireFromString("18.50")

const SourceFallback = "fallback"

var errRateUnavailable = errors.New("rate unavailable")

// Provider fetches a single currency-pair rate from one upstream source.
type Provider interface {
	Name() string
	FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Chain tries providers in order and falls back to FallbackRate.
type Chain struct {
	providers  []Provider
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Chain.
type Option func(*Chain)

// WithProviders replaces the default provider order. Used by tests.
func WithProviders(providers ...Provider) Option {
	return func(c *Chain) { c.providers = providers }
}

// WithTimeout bounds each individual provider call.
func WithTimeout(d time.Duration) Option {
	return func(c *Chain) { c.timeout = d }
}

// NewChain builds the default provider order: the two keyless public APIs
// first, then the keyed ones when their credentials are configured.
func NewChain(openExchangeAppID, currencyLayerKey string, opts ...Option) *Chain {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	providers := []Provider{
		&ExchangeRateAPI{HTTPClient: httpClient},
		&Frankfurter{HTTPClient: httpClient},
	}
	if strings.TrimSpace(openExchangeAppID) != "" {
		providers = append(providers, &OpenExchangeRates{HTTPClient: httpClient, AppID: openExchangeAppID})
	}
	if strings.TrimSpace(currencyLayerKey) != "" {
		providers = append(providers, &CurrencyLayer{HTTPClient: httpClient, AccessKey: currencyLayerKey})
	}

	c := &Chain{
		providers:  providers,
		httpClient: httpClient,
		timeout:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve walks the chain and returns the first usable rate along with the
// name of the provider that produced it. It never returns an error: total
// failure yields FallbackRate tagged SourceFallback.
func (c *Chain) Resolve(ctx context.Context, from, to string) (decimal.Decimal, string) {
	for _, p := range c.providers {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		rate, err := p.FetchRate(callCtx, from, to)
		cancel()
		if err != nil {
			log.Printf("level=warn component=ratesclient msg=\"provider failed\" provider=%s pair=%s/%s err=%v", p.Name(), from, to, err)
			continue
		}
		if rate.IsZero() || rate.IsNegative() {
			log.Printf("level=warn component=ratesclient msg=\"provider returned unusable rate\" provider=%s pair=%s/%s rate=%s", p.Name(), from, to, rate)
			continue
		}
		return rate, p.Name()
	}
	log.Printf("level=warn component=ratesclient msg=\"all providers failed; using fallback\" pair=%s/%s rate=%s", from, to, FallbackRate)
	return FallbackRate, SourceFallback
}

func fetchJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ExchangeRateAPI queries the free exchangerate-api.com v4 endpoint.
type ExchangeRateAPI struct {
	HTTPClient *http.Client
	BaseURL    string
}

func (p *ExchangeRateAPI) Name() string { return "exchangerate-api" }

func (p *ExchangeRateAPI) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://api.exchangerate-api.com/v4"
	}
	var payload struct {
		Rates map[string]json.Number `json:"rates"`
	}
	url := fmt.Sprintf("%s/latest/%s", base, strings.ToUpper(from))
	if err := fetchJSON(ctx, p.HTTPClient, url, &payload); err != nil {
		return decimal.Zero, err
	}
	raw, ok := payload.Rates[strings.ToUpper(to)]
	if !ok {
		return decimal.Zero, errRateUnavailable
	}
	return decimal.NewFromString(raw.String())
}

// Frankfurter queries the free frankfurter.app API (ECB reference rates).
type Frankfurter struct {
	HTTPClient *http.Client
	BaseURL    string
}

func (p *Frankfurter) Name() string { return "frankfurter" }

func (p *Frankfurter) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://api.frankfurter.app"
	}
	var payload struct {
		Rates map[string]json.Number `json:"rates"`
	}
	url := fmt.Sprintf("%s/latest?from=%s&to=%s", base, strings.ToUpper(from), strings.ToUpper(to))
	if err := fetchJSON(ctx, p.HTTPClient, url, &payload); err != nil {
		return decimal.Zero, err
	}
	raw, ok := payload.Rates[strings.ToUpper(to)]
	if !ok {
		return decimal.Zero, errRateUnavailable
	}
	return decimal.NewFromString(raw.String())
}

// OpenExchangeRates queries openexchangerates.org; requires an app id and
// only supports USD as the base currency on the free plan.
type OpenExchangeRates struct {
	HTTPClient *http.Client
	BaseURL    string
	AppID      string
}

func (p *OpenExchangeRates) Name() string { return "openexchangerates" }

func (p *OpenExchangeRates) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if strings.ToUpper(from) != "USD" {
		return decimal.Zero, errRateUnavailable
	}
	base := p.BaseURL
	if base == "" {
		base = "https://openexchangerates.org/api"
	}
	var payload struct {
		Rates map[string]json.Number `json:"rates"`
	}
	url := fmt.Sprintf("%s/latest.json?app_id=%s", base, p.AppID)
	if err := fetchJSON(ctx, p.HTTPClient, url, &payload); err != nil {
		return decimal.Zero, err
	}
	raw, ok := payload.Rates[strings.ToUpper(to)]
	if !ok {
		return decimal.Zero, errRateUnavailable
	}
	return decimal.NewFromString(raw.String())
}

// CurrencyLayer queries apilayer's currencylayer API; requires an access key
// and quotes pairs as e.g. "USDZAR".
type CurrencyLayer struct {
	HTTPClient *http.Client
	BaseURL    string
	AccessKey  string
}

func (p *CurrencyLayer) Name() string { return "currencylayer" }

func (p *CurrencyLayer) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://api.currencylayer.com"
	}
	var payload struct {
		Success bool                   `json:"success"`
		Quotes  map[string]json.Number `json:"quotes"`
	}
	url := fmt.Sprintf("%s/live?access_key=%s&source=%s&currencies=%s", base, p.AccessKey, strings.ToUpper(from), strings.ToUpper(to))
	if err := fetchJSON(ctx, p.HTTPClient, url, &payload); err != nil {
		return decimal.Zero, err
	}
	if !payload.Success {
		return decimal.Zero, errRateUnavailable
	}
	raw, ok := payload.Quotes[strings.ToUpper(from)+strings.ToUpper(to)]
	if !ok {
		return decimal.Zero, errRateUnavailable
	}
	return decimal.NewFromString(raw.String())
}
