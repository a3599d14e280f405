package db

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DSN returns the archive connection string, or "" when archiving is disabled.
func DSN() string {
	return getEnv("ARCHIVE_DB_DSN", "")
}

// Connect opens the archive database and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// Migrate creates the archive tables if they are missing.
func Migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS archived_messages (
            room_name TEXT NOT NULL,
            id INT NOT NULL,
            room_id INT NOT NULL,
            sender_id INT NOT NULL,
            sender_name TEXT NOT NULL DEFAULT '',
            content TEXT NOT NULL,
            file_url TEXT,
            sent_at TIMESTAMPTZ NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            is_edited BOOLEAN NOT NULL DEFAULT FALSE,
            edited_at TIMESTAMPTZ,
            reaction_types TEXT[] NOT NULL DEFAULT '{}',
            archived_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(room_name, id)
        );`,
		`CREATE TABLE IF NOT EXISTS archived_notifications (
            id UUID PRIMARY KEY,
            title TEXT NOT NULL,
            message TEXT NOT NULL,
            notification_type TEXT NOT NULL,
            priority TEXT NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL,
            action_url TEXT,
            action_text TEXT,
            archived_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("archive migrations applied")
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
