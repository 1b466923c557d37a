package usecase

import (
	"context"
	"time"

	"github.com/samber/lo"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/internal/infrastructure/metrics"
	"carmarket/internal/infrastructure/ratelimit"
	apperrors "carmarket/pkg/errors"
	"carmarket/pkg/logger"
)

type PriceAlertInput struct {
	ListingID   uint64  `json:"listingId" validate:"required"`
	TargetPrice float64 `json:"targetPrice" validate:"required,gt=0"`
}

// SweepResult summarises one pass over the pending alerts.
type SweepResult struct {
	Checked  int `json:"checked"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

type PriceAlertUseCase struct {
	alertRepo   repository.PriceAlertRepository
	listingRepo repository.ListingRepository
	notifier    *NotificationUseCase
	rateLimiter *ratelimit.RateLimiter
}

func NewPriceAlertUseCase(
	alertRepo repository.PriceAlertRepository,
	listingRepo repository.ListingRepository,
	notifier *NotificationUseCase,
	rateLimiter *ratelimit.RateLimiter,
) *PriceAlertUseCase {
	return &PriceAlertUseCase{
		alertRepo:   alertRepo,
		listingRepo: listingRepo,
		notifier:    notifier,
		rateLimiter: rateLimiter,
	}
}

// Create arms an alert for the caller, or re-arms the existing active one
// with the new target. created is false when an alert was re-armed.
func (uc *PriceAlertUseCase) Create(ctx context.Context, userID string, input PriceAlertInput) (alert *entity.PriceAlert, created bool, err error) {
	if input.ListingID == 0 {
		return nil, false, apperrors.Validation("listingId is required")
	}
	if input.TargetPrice <= 0 {
		return nil, false, apperrors.Validation("targetPrice must be a positive number")
	}
	if uc.rateLimiter != nil {
		if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionPriceAlert); !allowed {
			metrics.RateLimitHits.WithLabelValues(ratelimit.ActionPriceAlert).Inc()
			return nil, false, apperrors.TooManyRequests("Rate limit exceeded. Please slow down", wait)
		}
	}

	listing, err := uc.listingRepo.GetByID(ctx, input.ListingID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return nil, false, apperrors.InvalidReference("Listing not found", err)
		}
		return nil, false, err
	}
	if !listing.IsActive {
		return nil, false, apperrors.InvalidReference("Listing is not active", nil)
	}

	existing, err := uc.alertRepo.FindActive(ctx, userID, listing.ID)
	switch {
	case err == nil:
		existing.TargetPrice = input.TargetPrice
		existing.CurrentPrice = listing.Price
		existing.Notified = false
		if err := uc.alertRepo.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		existing.Listing = listing.Summary()
		return existing, false, nil
	case !apperrors.Is(err, apperrors.CodeNotFound):
		return nil, false, err
	}

	alert = &entity.PriceAlert{
		UserID:       userID,
		ListingID:    listing.ID,
		TargetPrice:  input.TargetPrice,
		CurrentPrice: listing.Price,
		IsActive:     true,
	}
	if err := uc.alertRepo.Create(ctx, alert); err != nil {
		return nil, false, err
	}
	alert.Listing = listing.Summary()
	logger.Info("PriceAlert: user %s watching listing %d at %.2f", userID, listing.ID, input.TargetPrice)
	return alert, true, nil
}

// List returns the caller's alerts, newest first, with listing snapshots.
func (uc *PriceAlertUseCase) List(ctx context.Context, userID string) ([]*entity.PriceAlert, error) {
	alerts, err := uc.alertRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return []*entity.PriceAlert{}, nil
	}

	ids := lo.Uniq(lo.Map(alerts, func(a *entity.PriceAlert, _ int) uint64 { return a.ListingID }))
	listings, err := uc.listingRepo.GetByIDs(ctx, ids)
	if err != nil {
		logger.Warn("PriceAlert: listing lookup failed: %v", err)
		return alerts, nil
	}
	for _, a := range alerts {
		a.Listing = listings[a.ListingID].Summary()
	}
	return alerts, nil
}

func (uc *PriceAlertUseCase) Delete(ctx context.Context, userID string, id uint64) error {
	return uc.alertRepo.Delete(ctx, userID, id)
}

// Sweep checks every pending alert once. An alert whose listing is active and
// priced at or below the target is notified and then marked notified, so a
// later sweep without a re-arm never notifies it again. A failed notification
// leaves the alert pending.
func (uc *PriceAlertUseCase) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	defer func() { metrics.PriceAlertSweepDuration.Observe(time.Since(start).Seconds()) }()

	var result SweepResult
	alerts, err := uc.alertRepo.ListPending(ctx)
	if err != nil {
		return result, err
	}
	if len(alerts) == 0 {
		return result, nil
	}

	ids := lo.Uniq(lo.Map(alerts, func(a *entity.PriceAlert, _ int) uint64 { return a.ListingID }))
	listings, err := uc.listingRepo.GetByIDs(ctx, ids)
	if err != nil {
		return result, err
	}

	for _, alert := range alerts {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++

		listing, ok := listings[alert.ListingID]
		if !ok || !listing.IsActive {
			continue
		}

		if listing.Price <= alert.TargetPrice {
			if _, err := uc.notifier.NotifyPriceDrop(ctx, alert.UserID, listing.Summary(), listing.Price); err != nil {
				logger.Error("PriceAlert: notify for alert %d failed: %v", alert.ID, err)
				result.Failed++
				continue
			}
			alert.Notified = true
			alert.CurrentPrice = listing.Price
			if err := uc.alertRepo.Update(ctx, alert); err != nil {
				logger.Error("PriceAlert: failed to mark alert %d notified: %v", alert.ID, err)
				result.Failed++
				continue
			}
			metrics.PriceAlertsFired.Inc()
			result.Notified++
			continue
		}

		if alert.CurrentPrice != listing.Price {
			alert.CurrentPrice = listing.Price
			if err := uc.alertRepo.Update(ctx, alert); err != nil {
				logger.Warn("PriceAlert: failed to record price for alert %d: %v", alert.ID, err)
				result.Failed++
			}
		}
	}

	logger.Info("PriceAlert: sweep checked %d alerts, notified %d, failed %d", result.Checked, result.Notified, result.Failed)
	return result, nil
}

// StartSweepJob runs Sweep after initialDelay and then every interval until
// ctx is cancelled.
func (uc *PriceAlertUseCase) StartSweepJob(ctx context.Context, interval, initialDelay time.Duration) {
	if interval <= 0 {
		logger.Warn("PriceAlert: sweep disabled, interval %s", interval)
		return
	}
	logger.Info("PriceAlert: sweep every %s", interval)

	run := func() {
		if _, err := uc.Sweep(ctx); err != nil && ctx.Err() == nil {
			logger.Error("PriceAlert: sweep failed: %v", err)
		}
	}

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		run()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
