package ratesclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type providerStub struct {
	name  string
	rate  decimal.Decimal
	err   error
	calls int
}

func (p *providerStub) Name() string { return p.name }

func (p *providerStub) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	p.calls++
	if p.err != nil {
		return decimal.Zero, p.err
	}
	return p.rate, nil
}

func newTestChain(providers ...Provider) *Chain {
	return NewChain("", "", WithProviders(providers...), WithTimeout(time.Second))
}

func TestResolve_FirstUsableRateWins(t *testing.T) {
	first := &providerStub{name: "first", rate: decimal.RequireFromString("18.20")}
	second := &providerStub{name: "second", rate: decimal.RequireFromString("19.00")}
	chain := newTestChain(first, second)

	rate, source := chain.Resolve(context.Background(), "USD", "ZAR")
	if !rate.Equal(first.rate) {
		t.Fatalf("expected first provider's rate %s, got %s", first.rate, rate)
	}
	if source != "first" {
		t.Fatalf("expected source %q, got %q", "first", source)
	}
	if second.calls != 0 {
		t.Fatalf("expected second provider untouched, got %d calls", second.calls)
	}
}

func TestResolve_SkipsFailingAndUnusableProviders(t *testing.T) {
	down := &providerStub{name: "down", err: errors.New("connection refused")}
	zero := &providerStub{name: "zero", rate: decimal.Zero}
	good := &providerStub{name: "good", rate: decimal.RequireFromString("18.75")}
	chain := newTestChain(down, zero, good)

	rate, source := chain.Resolve(context.Background(), "USD", "ZAR")
	if !rate.Equal(good.rate) {
		t.Fatalf("expected rate from the working provider, got %s from %q", rate, source)
	}
	if down.calls != 1 || zero.calls != 1 {
		t.Fatal("expected every earlier provider tried once")
	}
}

func TestResolve_AllFailuresYieldFallback(t *testing.T) {
	a := &providerStub{name: "a", err: errors.New("timeout")}
	b := &providerStub{name: "b", err: errors.New("500")}
	chain := newTestChain(a, b)

	rate, source := chain.Resolve(context.Background(), "USD", "ZAR")
	if !rate.Equal(FallbackRate) {
		t.Fatalf("expected fallback rate %s, got %s", FallbackRate, rate)
	}
	if source != SourceFallback {
		t.Fatalf("expected source %q, got %q", SourceFallback, source)
	}
}

func TestNewChain_KeyedProvidersOnlyWhenConfigured(t *testing.T) {
	bare := NewChain("", "")
	if len(bare.providers) != 2 {
		t.Fatalf("expected 2 keyless providers, got %d", len(bare.providers))
	}

	keyed := NewChain("app-id", "access-key")
	if len(keyed.providers) != 4 {
		t.Fatalf("expected 4 providers with both keys set, got %d", len(keyed.providers))
	}
	if keyed.providers[0].Name() != "exchangerate-api" || keyed.providers[1].Name() != "frankfurter" {
		t.Fatal("expected keyless providers tried before keyed ones")
	}
}
