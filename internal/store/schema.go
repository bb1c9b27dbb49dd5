package store

import (
	"database/sql"
	"fmt"

	"github.com/quantyverse/qv-session-manager/internal/logger"
)

// schema is applied on every construction; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    title TEXT,
    created_at TEXT,
    updated_at TEXT,
    metadata TEXT,
    model_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    conversation_id TEXT,
    role TEXT,
    content TEXT,
    created_at TEXT,
    metadata TEXT,
    FOREIGN KEY(conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);
`

// migrate creates the tables and upgrades a legacy layout in place. Early
// deployments created the conversations table before model_name existed;
// CREATE TABLE IF NOT EXISTS leaves such a table untouched, so the column
// is added here with an empty default. Existing rows keep all other values.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	hasColumn, err := tableHasColumn(db, "conversations", "model_name")
	if err != nil {
		return err
	}
	if hasColumn {
		return nil
	}
	logger.L.Info("migrating conversations table", "add_column", "model_name")
	_, err = db.Exec(`ALTER TABLE conversations ADD COLUMN model_name TEXT NOT NULL DEFAULT ''`)
	return err
}

// tableHasColumn inspects the live table layout rather than trusting a
// stored schema version number.
func tableHasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
