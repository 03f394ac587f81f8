package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertActive_Integration(t *testing.T) {
	database := setupTestDB(t)
	repo := subscription.NewRepository(database)
	ctx := context.Background()
	userID := newUser(t, database)

	start := time.Now().UTC().Truncate(time.Second)
	first, err := repo.UpsertActive(ctx, userID, subscription.PlanMonthly, start, start.AddDate(0, 1, 0),
		subscription.PaymentRefs{PaymentRef: "pay_1"})
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, first.Status)

	second, err := repo.UpsertActive(ctx, userID, subscription.PlanYearly, start, start.AddDate(1, 0, 0),
		subscription.PaymentRefs{PaymentRef: "cs_2", RecurringRef: "sub_2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "activation rewrites the active row in place")
	assert.Equal(t, subscription.PlanYearly, second.PlanID)

	var active int
	require.NoError(t, database.Get(&active,
		"SELECT COUNT(*) FROM subscriptions WHERE user_id = $1 AND status = 'active'", userID))
	assert.Equal(t, 1, active)
}

func TestCancelActive_Integration(t *testing.T) {
	database := setupTestDB(t)
	repo := subscription.NewRepository(database)
	ctx := context.Background()
	userID := newUser(t, database)

	n, err := repo.CancelActive(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, n)

	start := time.Now().UTC()
	_, err = repo.UpsertActive(ctx, userID, subscription.PlanQuarterly, start, start.AddDate(0, 3, 0),
		subscription.PaymentRefs{RecurringRef: "sub_q"})
	require.NoError(t, err)

	n, err = repo.CancelActive(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sub, err := repo.GetActive(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, sub)

	byRef, err := repo.GetByRecurringRef(ctx, "sub_q")
	require.NoError(t, err)
	require.NotNil(t, byRef)
	assert.Equal(t, subscription.StatusCancelled, byRef.Status)
}
