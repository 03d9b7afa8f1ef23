package migrations

import (
	"database/sql"
	"time"
)

type User struct {
	ID                int
	Username          string
	Email             string
	FullName          string
	PasswordHash      string
	Role              string // "admin" or "user"
	SubscriptionType  string // "free" or "premium"
	APIKeyEncrypted   string
	DailyUsageCount   int
	LastUsageDate     *time.Time
	Disabled          bool
	Verified          bool
	VerificationToken string
	ResetToken        string
	ResetTokenExpiry  *time.Time
	UpgradeRequested  bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const userColumns = `id, username, email, full_name, password_hash, role, subscription_type,
	COALESCE(api_key_encrypted, ''), daily_usage_count, last_usage_date, disabled, verified,
	COALESCE(verification_token, ''), COALESCE(reset_token, ''), reset_token_expiry,
	upgrade_requested, created_at, updated_at`

func scanUser(row *sql.Row) *User {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Role,
		&u.SubscriptionType, &u.APIKeyEncrypted, &u.DailyUsageCount, &u.LastUsageDate,
		&u.Disabled, &u.Verified, &u.VerificationToken, &u.ResetToken, &u.ResetTokenExpiry,
		&u.UpgradeRequested, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil
	}
	return &u
}

// GetUserByUsername returns nil when the user does not exist.
func GetUserByUsername(username string) *User {
	if db == nil {
		return nil
	}
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ? LIMIT 1`, username))
}

func GetUserByEmail(email string) *User {
	if db == nil {
		return nil
	}
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email))
}

func GetUserByVerificationToken(token string) *User {
	if db == nil || token == "" {
		return nil
	}
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE verification_token = ? LIMIT 1`, token))
}

func GetUserByResetToken(token string) *User {
	if db == nil || token == "" {
		return nil
	}
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE reset_token = ? LIMIT 1`, token))
}

func CountUsers() (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(1) FROM users`).Scan(&count)
	return count, err
}

func UsernameExists(username string) (bool, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(1) FROM users WHERE username = ?`, username).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateUser inserts a user and returns its id.
func CreateUser(u *User) error {
	res, err := db.Exec(
		`INSERT INTO users (username, email, full_name, password_hash, role, subscription_type, verified, verification_token)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))`,
		u.Username, u.Email, u.FullName, u.PasswordHash, u.Role, u.SubscriptionType, u.Verified, u.VerificationToken)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = int(id)
	return nil
}

// DeleteUser removes the row; used to roll back a registration whose
// verification email could not be sent.
func DeleteUser(username string) error {
	_, err := db.Exec(`DELETE FROM users WHERE username = ?`, username)
	return err
}

func MarkVerified(userID int) error {
	_, err := db.Exec(`UPDATE users SET verified = 1, verification_token = NULL WHERE id = ?`, userID)
	return err
}

func SetResetToken(userID int, token string, expiry time.Time) error {
	_, err := db.Exec(`UPDATE users SET reset_token = ?, reset_token_expiry = ? WHERE id = ?`, token, expiry, userID)
	return err
}

func UpdatePassword(userID int, passwordHash string) error {
	_, err := db.Exec(
		`UPDATE users SET password_hash = ?, reset_token = NULL, reset_token_expiry = NULL WHERE id = ?`,
		passwordHash, userID)
	return err
}

func SetAPIKey(userID int, encrypted string) error {
	_, err := db.Exec(`UPDATE users SET api_key_encrypted = ? WHERE id = ?`, encrypted, userID)
	return err
}

func SetUpgradeRequested(userID int, requested bool) error {
	_, err := db.Exec(`UPDATE users SET upgrade_requested = ? WHERE id = ?`, requested, userID)
	return err
}

// SetSubscription flips the tier; approving premium clears any pending
// upgrade request. Reports whether the user existed.
func SetSubscription(username, subscriptionType string) (bool, error) {
	res, err := db.Exec(
		`UPDATE users SET subscription_type = ?, upgrade_requested = IF(? = 'premium', 0, upgrade_requested) WHERE username = ?`,
		subscriptionType, subscriptionType, username)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func SetDisabled(username string, disabled bool) (bool, error) {
	res, err := db.Exec(`UPDATE users SET disabled = ? WHERE username = ?`, disabled, username)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListUsers returns every account, admin overview only.
func ListUsers() ([]User, error) {
	rows, err := db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Role,
			&u.SubscriptionType, &u.APIKeyEncrypted, &u.DailyUsageCount, &u.LastUsageDate,
			&u.Disabled, &u.Verified, &u.VerificationToken, &u.ResetToken, &u.ResetTokenExpiry,
			&u.UpgradeRequested, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
