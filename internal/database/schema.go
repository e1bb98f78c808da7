package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables used by the repositories. Statements are
// idempotent so Migrate can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                CHAR(36)     NOT NULL PRIMARY KEY,
		email             VARCHAR(255) NOT NULL,
		password_hash     VARCHAR(255) NOT NULL,
		first_name        VARCHAR(100) NOT NULL,
		last_name         VARCHAR(100) NOT NULL,
		username          VARCHAR(100) NULL,
		date_of_birth     DATE         NULL,
		gender            VARCHAR(16)  NULL,
		height            DOUBLE       NULL,
		profile_image_url VARCHAR(1024) NULL,
		created_at        DATETIME(6)  NOT NULL,
		updated_at        DATETIME(6)  NULL,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		token_hash CHAR(64)    NOT NULL PRIMARY KEY,
		user_id    CHAR(36)    NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_refresh_tokens_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS health_records (
		record_id         CHAR(36)      NOT NULL PRIMARY KEY,
		user_id           CHAR(36)      NOT NULL,
		date              DATE          NULL,
		sleep_time        VARCHAR(32)   NULL,
		wake_time         VARCHAR(32)   NULL,
		weight            DOUBLE        NULL,
		height            DOUBLE        NULL,
		exercise_duration DOUBLE        NULL,
		water_intake      DOUBLE        NULL,
		meals_count       INT           NULL,
		sleep_quality     VARCHAR(32)   NULL,
		exercise_type     VARCHAR(255)  NULL,
		medications       VARCHAR(255)  NULL,
		symptoms          VARCHAR(255)  NULL,
		stress_level      VARCHAR(32)   NULL,
		mood              VARCHAR(255)  NULL,
		energy_level      VARCHAR(32)   NULL,
		notes             TEXT          NULL,
		created_at        DATETIME(6)   NOT NULL,
		updated_at        DATETIME(6)   NULL,
		KEY idx_health_records_owner (user_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
