// Package quota gates free-tier generation calls behind a per-user daily
// counter. Premium users never reach the ledger.
package quota

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"
)

// ErrLimitExceeded means the user spent today's free allowance.
var ErrLimitExceeded = errors.New("daily usage limit reached")

// DefaultDailyLimit is the free-tier allowance per UTC calendar day.
const DefaultDailyLimit = 5

// Store performs the conditional counter updates. Both operations must be
// atomic at the storage layer: the ledger is read-modify-write shared state,
// and two concurrent requests must never both slip past the limit.
type Store interface {
	// ResetIfStale sets the counter to 1 when the user's last usage date is
	// absent or before startOfDay. Reports whether the reset applied.
	ResetIfStale(userID int, now, startOfDay time.Time) (bool, error)
	// IncrementBelow increments the counter only while it is under limit and
	// the last usage date is within today. Reports whether it applied.
	IncrementBelow(userID, limit int, now, startOfDay time.Time) (bool, error)
}

// Validator decides whether a free-tier request may proceed, consuming one
// unit of quota when it does.
type Validator struct {
	store Store
	limit int
}

func NewValidator(store Store) *Validator {
	limit := DefaultDailyLimit
	if v := os.Getenv("FREE_DAILY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return &Validator{store: store, limit: limit}
}

// Limit returns the configured daily allowance.
func (v *Validator) Limit() int { return v.limit }

// CheckAndConsume applies the ledger policy for one request at the given
// instant. Days are UTC at day granularity.
func (v *Validator) CheckAndConsume(userID int, now time.Time) error {
	now = now.UTC()
	startOfDay := now.Truncate(24 * time.Hour)

	reset, err := v.store.ResetIfStale(userID, now, startOfDay)
	if err != nil {
		log.Printf("[quota][error] user_id=%d err=%v", userID, err)
		return err
	}
	if reset {
		log.Printf("[quota][ok] user_id=%d reason=day_rollover count=1 limit=%d", userID, v.limit)
		return nil
	}
	bumped, err := v.store.IncrementBelow(userID, v.limit, now, startOfDay)
	if err != nil {
		log.Printf("[quota][error] user_id=%d err=%v", userID, err)
		return err
	}
	if !bumped {
		log.Printf("[quota][deny] user_id=%d reason=exhausted limit=%d", userID, v.limit)
		return ErrLimitExceeded
	}
	log.Printf("[quota][ok] user_id=%d reason=consume limit=%d", userID, v.limit)
	return nil
}
