package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"marketingvoice/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the configured database for the given driver type.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				user_type TEXT NOT NULL DEFAULT 'regular',
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS user_tokens (
				token TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS chats (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				title TEXT NOT NULL,
				visibility TEXT NOT NULL DEFAULT 'private',
				created_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS messages (
				id TEXT PRIMARY KEY,
				chat_id TEXT NOT NULL,
				role TEXT NOT NULL,
				parts TEXT NOT NULL,
				attachments TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(chat_id) REFERENCES chats(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS streams (
				id TEXT PRIMARY KEY,
				chat_id TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(chat_id) REFERENCES chats(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				title TEXT NOT NULL,
				kind TEXT NOT NULL,
				content TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS generated_images (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				prompt TEXT NOT NULL,
				image_url TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_user_tokens_user ON user_tokens(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_chats_user ON chats(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_streams_chat ON streams(chat_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_generated_images_user ON generated_images(user_id)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id VARCHAR(36) NOT NULL,
				username VARCHAR(255) NOT NULL UNIQUE,
				password_hash VARCHAR(255) NOT NULL,
				user_type VARCHAR(20) NOT NULL DEFAULT 'regular',
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS user_tokens (
				token VARCHAR(255) NOT NULL PRIMARY KEY,
				user_id VARCHAR(36) NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				INDEX idx_user_tokens_user (user_id),
				CONSTRAINT fk_user_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS chats (
				id VARCHAR(36) NOT NULL,
				user_id VARCHAR(36) NOT NULL,
				title VARCHAR(255) NOT NULL,
				visibility VARCHAR(20) NOT NULL DEFAULT 'private',
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_chats_user (user_id),
				CONSTRAINT fk_chats_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS messages (
				id VARCHAR(36) NOT NULL,
				chat_id VARCHAR(36) NOT NULL,
				role VARCHAR(20) NOT NULL,
				parts MEDIUMTEXT NOT NULL,
				attachments MEDIUMTEXT NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_messages_chat (chat_id, created_at),
				CONSTRAINT fk_messages_chat FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS streams (
				id VARCHAR(36) NOT NULL,
				chat_id VARCHAR(36) NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_streams_chat (chat_id, created_at),
				CONSTRAINT fk_streams_chat FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS documents (
				id VARCHAR(36) NOT NULL,
				user_id VARCHAR(36) NOT NULL,
				title VARCHAR(255) NOT NULL,
				kind VARCHAR(20) NOT NULL,
				content MEDIUMTEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_documents_user (user_id),
				CONSTRAINT fk_documents_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS generated_images (
				id VARCHAR(36) NOT NULL,
				user_id VARCHAR(36) NOT NULL,
				prompt MEDIUMTEXT NOT NULL,
				image_url MEDIUMTEXT NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_generated_images_user (user_id),
				CONSTRAINT fk_generated_images_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
