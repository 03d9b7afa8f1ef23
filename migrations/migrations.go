package migrations

import (
	"database/sql"
	"fmt"
)

var db *sql.DB

// Init sets the DB connection for migrations and queries.
func Init(database *sql.DB) {
	db = database
}

// DB exposes the shared connection to packages that build repositories on it.
func DB() *sql.DB { return db }

// Migrate creates required tables if they do not exist.
func Migrate() error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	createUsers := `
	CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(191) NOT NULL DEFAULT '',
		full_name VARCHAR(191) NOT NULL DEFAULT '',
		password_hash VARCHAR(191) NOT NULL,
		role VARCHAR(50) NOT NULL DEFAULT 'user',
		subscription_type VARCHAR(20) NOT NULL DEFAULT 'free',
		api_key_encrypted TEXT NULL,
		daily_usage_count INT NOT NULL DEFAULT 0,
		last_usage_date DATETIME NULL,
		disabled TINYINT(1) NOT NULL DEFAULT 0,
		verified TINYINT(1) NOT NULL DEFAULT 0,
		verification_token VARCHAR(191) NULL,
		reset_token VARCHAR(191) NULL,
		reset_token_expiry DATETIME NULL,
		upgrade_requested TINYINT(1) NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createUsers); err != nil {
		return err
	}

	createConversations := `
	CREATE TABLE IF NOT EXISTS conversations (
		id INT AUTO_INCREMENT PRIMARY KEY,
		session_id VARCHAR(191) NOT NULL,
		user_id VARCHAR(100) NOT NULL,
		title VARCHAR(255) NOT NULL DEFAULT 'New Chat',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_session_user (session_id, user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createConversations); err != nil {
		return err
	}

	createMessages := `
	CREATE TABLE IF NOT EXISTS conversation_messages (
		id INT AUTO_INCREMENT PRIMARY KEY,
		conversation_id INT NOT NULL,
		role VARCHAR(20) NOT NULL,
		content MEDIUMTEXT NOT NULL,
		sources JSON NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createMessages); err != nil {
		return err
	}

	createFiles := `
	CREATE TABLE IF NOT EXISTS files (
		id INT AUTO_INCREMENT PRIMARY KEY,
		filename VARCHAR(255) NOT NULL UNIQUE,
		size BIGINT NOT NULL DEFAULT 0,
		upload_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		uploaded_by VARCHAR(100) NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'processed'
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createFiles); err != nil {
		return err
	}

	// Durable markers for the two-step file delete (vectors + metadata).
	// A surviving row means the delete did not finish and must be retried.
	createPendingDeletes := `
	CREATE TABLE IF NOT EXISTS pending_deletes (
		filename VARCHAR(255) PRIMARY KEY,
		requested_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		vectors_deleted TINYINT(1) NOT NULL DEFAULT 0
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createPendingDeletes); err != nil {
		return err
	}
	return nil
}
