/**
 * @description
 * This file contains exchange-rate management: resolving the effective rate
 * for a capture, refreshing the stored rate from the provider chain, and the
 * freshness policy the scheduler consults.
 *
 * Key features:
 * - Per-branch rate overrides take precedence over the stored market rate.
 * - A missing or zero stored rate degrades to 1.0 so capture never blocks
 *   on rate availability.
 * - Refreshes prune history beyond a configured cap and stamp a last-fetch
 *   setting for the freshness check.
 */

package app

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/domain"
	"github.com/isasouthern/hawala-service/internal/store"
)

// effectiveRate is the USD→local rate used for a capture: the branch
// override when one is set, otherwise the latest stored rate, otherwise 1.0.
func (s *Service) effectiveRate(ctx context.Context, currencyCode string, branchID *uuid.UUID) decimal.Decimal {
	if branchID != nil {
		branch, err := s.repo.FindBranchByID(ctx, *branchID)
		if err == nil && branch.RateOverride != nil && branch.RateOverride.IsPositive() {
			return *branch.RateOverride
		}
		if err != nil && !errors.Is(err, store.ErrBranchNotFound) {
			log.Printf("level=warn component=service msg=\"branch lookup failed for rate override\" branch_id=%s err=%v", branchID, err)
		}
	}

	rate, err := s.repo.LatestExchangeRate(ctx, s.baseCurrency, currencyCode)
	if err != nil {
		if !errors.Is(err, store.ErrRateNotFound) {
			log.Printf("level=warn component=service msg=\"rate lookup failed; using 1.0\" currency=%s err=%v", currencyCode, err)
		}
		return decimal.NewFromInt(1)
	}
	if !rate.Rate.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return rate.Rate
}

// LatestRate returns the most recent stored rate for the pair.
func (s *Service) LatestRate(ctx context.Context, from, to string) (*domain.ExchangeRate, error) {
	return s.repo.LatestExchangeRate(ctx, from, to)
}

// RateHistory lists stored rates for the pair, newest first.
func (s *Service) RateHistory(ctx context.Context, from, to string, limit int) ([]domain.ExchangeRate, error) {
	return s.repo.ListExchangeRates(ctx, from, to, limit)
}

// RefreshRates fetches the USD→local rate from the provider chain, stores
// it, prunes old history, and stamps the last-fetch time. Unless force is
// set, a refresh is skipped while the stored rate is still fresh or the
// auto-update setting is disabled.
func (s *Service) RefreshRates(ctx context.Context, force bool) (*domain.ExchangeRate, error) {
	if !force {
		refresh, err := s.ShouldRefresh(ctx)
		if err != nil {
			return nil, err
		}
		if !refresh {
			log.Printf("level=info component=service msg=\"rate refresh skipped; still fresh\"")
			return s.repo.LatestExchangeRate(ctx, s.baseCurrency, s.localCurrency)
		}
	}

	rate, source := s.rates.Resolve(ctx, s.baseCurrency, s.localCurrency)

	stored := &domain.ExchangeRate{
		FromCurrency: s.baseCurrency,
		ToCurrency:   s.localCurrency,
		Rate:         rate,
		Source:       source,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.repo.InsertExchangeRate(ctx, stored); err != nil {
		return nil, err
	}

	if pruned, err := s.repo.PruneExchangeRates(ctx, s.baseCurrency, s.localCurrency, s.rateHistoryCap); err != nil {
		log.Printf("level=warn component=service msg=\"rate history prune failed\" err=%v", err)
	} else if pruned > 0 {
		log.Printf("level=info component=service msg=\"rate history pruned\" removed=%d keep=%d", pruned, s.rateHistoryCap)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.repo.UpsertSetting(ctx, domain.SettingLastRateFetch, now); err != nil {
		log.Printf("level=warn component=service msg=\"failed to stamp last rate fetch\" err=%v", err)
	}

	log.Printf("level=info component=service msg=\"exchange rate refreshed\" pair=%s/%s rate=%s source=%s",
		s.baseCurrency, s.localCurrency, rate, source)
	return stored, nil
}

// SetManualRate stores an operator-entered rate for the default pair. Manual
// rows are tagged so the history shows who-knows-better overrides distinctly
// from provider observations.
func (s *Service) SetManualRate(ctx context.Context, actor domain.Actor, rate decimal.Decimal) (*domain.ExchangeRate, error) {
	if !rate.IsPositive() {
		return nil, ErrInvalidAmount
	}

	stored := &domain.ExchangeRate{
		FromCurrency: s.baseCurrency,
		ToCurrency:   s.localCurrency,
		Rate:         rate,
		Source:       "manual",
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.repo.InsertExchangeRate(ctx, stored); err != nil {
		return nil, err
	}
	log.Printf("level=info component=service msg=\"manual rate set\" pair=%s/%s rate=%s actor=%s",
		s.baseCurrency, s.localCurrency, rate, actor.ID)
	return stored, nil
}

// ShouldRefresh reports whether the scheduled job should fetch a new rate:
// yes when no rate was ever stored, no when auto-update is disabled, and
// otherwise yes only once the newest stored rate is older than the
// freshness window. Anchoring on the rate row means a fresh manual entry
// suppresses the next fetch; the last-fetch stamp only backs up rows that
// carry no timestamp.
func (s *Service) ShouldRefresh(ctx context.Context) (bool, error) {
	latest, err := s.repo.LatestExchangeRate(ctx, s.baseCurrency, s.localCurrency)
	if err != nil {
		if errors.Is(err, store.ErrRateNotFound) {
			return true, nil
		}
		return false, err
	}

	if setting, err := s.repo.GetSetting(ctx, domain.SettingAutoUpdateRates); err == nil {
		enabled, parseErr := strconv.ParseBool(setting.Value)
		if parseErr == nil && !enabled {
			return false, nil
		}
	} else if !errors.Is(err, store.ErrSettingNotFound) {
		return false, err
	}

	anchor := latest.UpdatedAt
	if anchor.IsZero() {
		setting, err := s.repo.GetSetting(ctx, domain.SettingLastRateFetch)
		if err != nil {
			if errors.Is(err, store.ErrSettingNotFound) {
				return true, nil
			}
			return false, err
		}
		parsed, parseErr := time.Parse(time.RFC3339, setting.Value)
		if parseErr != nil {
			log.Printf("level=warn component=service msg=\"unparseable last rate fetch; refreshing\" value=%q", setting.Value)
			return true, nil
		}
		anchor = parsed
	}
	return time.Since(anchor) >= s.rateFreshness, nil
}

// GetSetting returns one settings row.
func (s *Service) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	return s.repo.GetSetting(ctx, key)
}

// PutSetting creates or replaces one settings row.
func (s *Service) PutSetting(ctx context.Context, actor domain.Actor, key, value string) error {
	if err := s.repo.UpsertSetting(ctx, key, value); err != nil {
		return err
	}
	log.Printf("level=info component=service msg=\"setting updated\" key=%s actor=%s", key, actor.ID)
	return nil
}
