package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmarket/internal/domain/entity"
	apperrors "carmarket/pkg/errors"
)

func priceDrops(t *testing.T, env *testEnv, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&entity.Notification{}).
		Where("user_id = ? AND kind = ?", userID, entity.NotificationPriceDrop).
		Count(&n).Error)
	return n
}

func TestCreatePriceAlertRearmsExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alert, created, err := env.alerts.Create(ctx, alice.ID, PriceAlertInput{ListingID: 10, TargetPrice: 11000000})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 12500000.0, alert.CurrentPrice)
	assert.Equal(t, "Camry", alert.Listing.Model)

	again, created, err := env.alerts.Create(ctx, alice.ID, PriceAlertInput{ListingID: 10, TargetPrice: 12000000})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, alert.ID, again.ID)
	assert.Equal(t, 12000000.0, again.TargetPrice)

	alerts, err := env.alerts.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Toyota", alerts[0].Listing.Brand)
}

func TestCreatePriceAlertRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.alerts.Create(ctx, alice.ID, PriceAlertInput{ListingID: 10, TargetPrice: 0})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, _, err = env.alerts.Create(ctx, alice.ID, PriceAlertInput{ListingID: 11, TargetPrice: 100})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidReference))
	_, _, err = env.alerts.Create(ctx, alice.ID, PriceAlertInput{ListingID: 404, TargetPrice: 100})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidReference))
	assert.EqualValues(t, 0, env.count(t, &entity.PriceAlert{}))
}

func TestSweepNotifiesOncePerThresholdCrossing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := env.connect(alice.ID)

	_, _, err := env.alerts.Create(ctx, alice.ID, PriceAlertInput{ListingID: 10, TargetPrice: 12000000})
	require.NoError(t, err)

	result, err := env.alerts.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 0, result.Notified)
	assert.EqualValues(t, 0, priceDrops(t, env, alice.ID))

	env.setPrice(t, 10, 11900000)
	result, err = env.alerts.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Notified)
	assert.EqualValues(t, 1, priceDrops(t, env, alice.ID))
	assert.Len(t, events(t, conn), 1)

	// no new qualifying change, no second notification
	result, err = env.alerts.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Checked)
	assert.EqualValues(t, 1, priceDrops(t, env, alice.ID))
	assert.Empty(t, events(t, conn))

	// re-arming lets the next crossing through
	_, _, err = env.alerts.Create(ctx, alice.ID, PriceAlertInput{ListingID: 10, TargetPrice: 11950000})
	require.NoError(t, err)
	_, err = env.alerts.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, priceDrops(t, env, alice.ID))
}

func TestSweepRecordsPriceAndSkipsInactiveListings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alert, _, err := env.alerts.Create(ctx, alice.ID, PriceAlertInput{ListingID: 10, TargetPrice: 9000000})
	require.NoError(t, err)

	env.setPrice(t, 10, 12000000)
	_, err = env.alerts.Sweep(ctx)
	require.NoError(t, err)

	var stored entity.PriceAlert
	require.NoError(t, env.db.First(&stored, alert.ID).Error)
	assert.Equal(t, 12000000.0, stored.CurrentPrice)
	assert.False(t, stored.Notified)

	require.NoError(t, env.db.Model(&entity.Listing{}).Where("id = ?", 10).
		Updates(map[string]interface{}{"is_active": false, "price": 1}).Error)
	result, err := env.alerts.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Notified)
	assert.EqualValues(t, 0, priceDrops(t, env, alice.ID))
}

func TestDeletePriceAlertIsOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alert, _, err := env.alerts.Create(ctx, alice.ID, PriceAlertInput{ListingID: 10, TargetPrice: 100})
	require.NoError(t, err)

	err = env.alerts.Delete(ctx, bob.ID, alert.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	require.NoError(t, env.alerts.Delete(ctx, alice.ID, alert.ID))
	assert.EqualValues(t, 0, env.count(t, &entity.PriceAlert{}))
}
