package database

import (
	"context"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(80)  NOT NULL,
		email         VARCHAR(191) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('admin','user') NOT NULL DEFAULT 'user',
		created_at    DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS parking_lots (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(120) NOT NULL,
		address     VARCHAR(255) NOT NULL,
		postal_code VARCHAR(20)  NOT NULL,
		hourly_rate DECIMAL(10,2) NOT NULL,
		max_spots   INT NOT NULL,
		created_at  DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS parking_spots (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		lot_id      BIGINT UNSIGNED NOT NULL,
		spot_number INT NOT NULL,
		status      CHAR(1) NOT NULL DEFAULT 'A',
		created_at  DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_parking_spots_lot_number (lot_id, spot_number),
		CONSTRAINT fk_parking_spots_lot FOREIGN KEY (lot_id) REFERENCES parking_lots(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		spot_id    BIGINT UNSIGNED NOT NULL,
		user_id    BIGINT UNSIGNED NOT NULL,
		start_time DATETIME(6) NOT NULL,
		end_time   DATETIME(6) NULL,
		cost       DECIMAL(10,2) NOT NULL DEFAULT 0,
		status     ENUM('active','completed') NOT NULL DEFAULT 'active',
		KEY idx_reservations_user_status (user_id, status),
		KEY idx_reservations_spot_status (spot_id, status),
		CONSTRAINT fk_reservations_spot FOREIGN KEY (spot_id) REFERENCES parking_spots(id) ON DELETE CASCADE,
		CONSTRAINT fk_reservations_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin','user')),
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS parking_lots (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		address     TEXT NOT NULL,
		postal_code TEXT NOT NULL,
		hourly_rate REAL NOT NULL,
		max_spots   INTEGER NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS parking_spots (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		lot_id      INTEGER NOT NULL REFERENCES parking_lots(id) ON DELETE CASCADE,
		spot_number INTEGER NOT NULL,
		status      TEXT NOT NULL DEFAULT 'A' CHECK (status IN ('A','O')),
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (lot_id, spot_number)
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		spot_id    INTEGER NOT NULL REFERENCES parking_spots(id) ON DELETE CASCADE,
		user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		start_time DATETIME NOT NULL,
		end_time   DATETIME NULL,
		cost       REAL NOT NULL DEFAULT 0,
		status     TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','completed'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user_status ON reservations (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_spot_status ON reservations (spot_id, status)`,
}

// Migrate creates the tables used by the service when they do not exist.
// Statements run one by one because the MySQL driver rejects multi-statement
// strings unless multiStatements is enabled.
func Migrate(ctx context.Context, db *DB) error {
	stmts := mysqlSchema
	if db.Dialect == SQLite {
		stmts = sqliteSchema
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
