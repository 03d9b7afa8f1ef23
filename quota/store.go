package quota

import (
	"database/sql"
	"time"
)

// SQLStore implements Store over the users table with single-statement
// conditional updates, so the check and the consume are one atomic step.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) ResetIfStale(userID int, now, startOfDay time.Time) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE users SET daily_usage_count = 1, last_usage_date = ?
		 WHERE id = ? AND (last_usage_date IS NULL OR last_usage_date < ?)`,
		now, userID, startOfDay)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLStore) IncrementBelow(userID, limit int, now, startOfDay time.Time) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE users SET daily_usage_count = daily_usage_count + 1, last_usage_date = ?
		 WHERE id = ? AND daily_usage_count < ? AND last_usage_date >= ?`,
		now, userID, limit, startOfDay)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
