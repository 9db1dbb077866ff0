package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/domain"
	"github.com/isasouthern/hawala-service/internal/store"
)

type ratesRepoStub struct {
	repoStub

	settings map[string]string

	insertedRate *domain.ExchangeRate
	prunedKeep   int
	upserted     map[string]string
}

func (s *ratesRepoStub) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	value, ok := s.settings[key]
	if !ok {
		return nil, store.ErrSettingNotFound
	}
	return &domain.Setting{Key: key, Value: value}, nil
}

func (s *ratesRepoStub) UpsertSetting(ctx context.Context, key, value string) error {
	if s.upserted == nil {
		s.upserted = make(map[string]string)
	}
	s.upserted[key] = value
	return nil
}

func (s *ratesRepoStub) InsertExchangeRate(ctx context.Context, rate *domain.ExchangeRate) error {
	s.insertedRate = rate
	return nil
}

func (s *ratesRepoStub) PruneExchangeRates(ctx context.Context, from, to string, keep int) (int64, error) {
	s.prunedKeep = keep
	return 3, nil
}

func TestShouldRefresh_NoStoredRate(t *testing.T) {
	repo := &ratesRepoStub{}
	repo.latestRateErr = store.ErrRateNotFound
	svc := newTestService(repo)

	refresh, err := svc.ShouldRefresh(context.Background())
	if err != nil {
		t.Fatalf("ShouldRefresh returned error: %v", err)
	}
	if !refresh {
		t.Fatal("expected refresh when no rate was ever stored")
	}
}

func TestShouldRefresh_AutoUpdateDisabled(t *testing.T) {
	repo := &ratesRepoStub{
		settings: map[string]string{domain.SettingAutoUpdateRates: "false"},
	}
	repo.latestRate = &domain.ExchangeRate{Rate: decimal.RequireFromString("18.50")}
	svc := newTestService(repo)

	refresh, err := svc.ShouldRefresh(context.Background())
	if err != nil {
		t.Fatalf("ShouldRefresh returned error: %v", err)
	}
	if refresh {
		t.Fatal("expected no refresh while auto-update is disabled")
	}
}

func TestShouldRefresh_StaleLastFetch(t *testing.T) {
	repo := &ratesRepoStub{
		settings: map[string]string{
			domain.SettingLastRateFetch: time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339),
		},
	}
	repo.latestRate = &domain.ExchangeRate{Rate: decimal.RequireFromString("18.50")}
	svc := newTestService(repo)

	refresh, err := svc.ShouldRefresh(context.Background())
	if err != nil {
		t.Fatalf("ShouldRefresh returned error: %v", err)
	}
	if !refresh {
		t.Fatal("expected refresh once the last fetch is older than the freshness window")
	}
}

func TestShouldRefresh_FreshRate(t *testing.T) {
	repo := &ratesRepoStub{
		settings: map[string]string{
			domain.SettingLastRateFetch: time.Now().UTC().Add(-10 * time.Minute).Format(time.RFC3339),
		},
	}
	repo.latestRate = &domain.ExchangeRate{Rate: decimal.RequireFromString("18.50")}
	svc := newTestService(repo)

	refresh, err := svc.ShouldRefresh(context.Background())
	if err != nil {
		t.Fatalf("ShouldRefresh returned error: %v", err)
	}
	if refresh {
		t.Fatal("expected no refresh while the stored rate is fresh")
	}
}

func TestShouldRefresh_FreshManualRateSuppressesFetch(t *testing.T) {
	repo := &ratesRepoStub{
		settings: map[string]string{
			domain.SettingLastRateFetch: time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339),
		},
	}
	repo.latestRate = &domain.ExchangeRate{
		Rate:      decimal.RequireFromString("18.75"),
		Source:    "manual",
		UpdatedAt: time.Now().UTC().Add(-10 * time.Minute),
	}
	svc := newTestService(repo)

	refresh, err := svc.ShouldRefresh(context.Background())
	if err != nil {
		t.Fatalf("ShouldRefresh returned error: %v", err)
	}
	if refresh {
		t.Fatal("expected a fresh manual rate to suppress the scheduled fetch")
	}
}

func TestShouldRefresh_StaleRateRowTriggersFetch(t *testing.T) {
	repo := &ratesRepoStub{}
	repo.latestRate = &domain.ExchangeRate{
		Rate:      decimal.RequireFromString("18.50"),
		UpdatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	svc := newTestService(repo)

	refresh, err := svc.ShouldRefresh(context.Background())
	if err != nil {
		t.Fatalf("ShouldRefresh returned error: %v", err)
	}
	if !refresh {
		t.Fatal("expected refresh once the stored rate outlived the freshness window")
	}
}

func TestRefreshRates_ForceStoresPrunesAndStamps(t *testing.T) {
	repo := &ratesRepoStub{}
	repo.latestRateErr = store.ErrRateNotFound
	svc := newTestService(repo)

	stored, err := svc.RefreshRates(context.Background(), true)
	if err != nil {
		t.Fatalf("RefreshRates returned error: %v", err)
	}
	if !stored.Rate.Equal(decimal.RequireFromString("18.50")) {
		t.Fatalf("expected stored rate from the provider chain, got %s", stored.Rate)
	}
	if stored.Source != "test" {
		t.Fatalf("expected provider source recorded, got %q", stored.Source)
	}
	if repo.insertedRate == nil || repo.insertedRate.FromCurrency != "USD" || repo.insertedRate.ToCurrency != "ZAR" {
		t.Fatalf("expected USD/ZAR rate stored, got %+v", repo.insertedRate)
	}
	if repo.prunedKeep != 100 {
		t.Fatalf("expected history pruned to 100, got %d", repo.prunedKeep)
	}
	stamp, ok := repo.upserted[domain.SettingLastRateFetch]
	if !ok {
		t.Fatal("expected last fetch setting stamped")
	}
	if _, err := time.Parse(time.RFC3339, stamp); err != nil {
		t.Fatalf("expected RFC3339 stamp, got %q: %v", stamp, err)
	}
}
