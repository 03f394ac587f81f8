package subscription

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

var ErrPaymentAlreadyApplied = errors.New("payment already applied")

const subscriptionColumns = `id, user_id, plan_id, status, start_date, end_date, payment_ref, recurring_ref, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// GetActive returns the newest active row, or nil when the user has none.
func (r *repository) GetActive(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub := &Subscription{}
	err := r.db.GetContext(ctx, sub, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		  AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// UpsertActive rewrites the user's active row in place or inserts one.
// The partial unique index on (user_id) WHERE status = 'active' is the
// conflict target, so concurrent activations converge on a single row.
// A payment ref is applied at most once: re-sending the active row's own ref
// updates nothing, and a ref held by any other row violates the unique index
// on payment_ref. Both surface as ErrPaymentAlreadyApplied.
func (r *repository) UpsertActive(ctx context.Context, userID uuid.UUID, plan PlanID, start, end time.Time, refs PaymentRefs) (*Subscription, error) {
	sub := &Subscription{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO subscriptions (user_id, plan_id, status, start_date, end_date, payment_ref, recurring_ref)
		VALUES ($1, $2, 'active', $3, $4, $5, $6)
		ON CONFLICT (user_id) WHERE status = 'active'
		DO UPDATE SET plan_id = EXCLUDED.plan_id,
		              status = 'active',
		              start_date = EXCLUDED.start_date,
		              end_date = EXCLUDED.end_date,
		              payment_ref = EXCLUDED.payment_ref,
		              recurring_ref = EXCLUDED.recurring_ref,
		              updated_at = NOW()
		WHERE EXCLUDED.payment_ref IS NULL
		   OR subscriptions.payment_ref IS DISTINCT FROM EXCLUDED.payment_ref
		RETURNING `+subscriptionColumns+`
	`, userID, plan, start, end, nullable(refs.PaymentRef), nullable(refs.RecurringRef)).StructScan(sub)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return nil, ErrPaymentAlreadyApplied
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *repository) CancelActive(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'cancelled',
		    updated_at = NOW()
		WHERE user_id = $1
		  AND status = 'active'
	`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) GetByRecurringRef(ctx context.Context, ref string) (*Subscription, error) {
	sub := &Subscription{}
	err := r.db.GetContext(ctx, sub, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE recurring_ref = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
