// Package db records parsed ledger files in SQLite: one history row per
// source, an index of its entries and free-form metadata.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- One row per parsed source; content_hash lets unchanged files be skipped
CREATE TABLE IF NOT EXISTS parse_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL UNIQUE,
    content_hash TEXT NOT NULL,        -- sha256 of the file content
    entry_count INTEGER NOT NULL,
    unknown_count INTEGER NOT NULL,    -- unknown_directive entries
    balance_errors INTEGER NOT NULL,
    parsed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Entries of the latest parse of each source, in document order
CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL REFERENCES parse_history(source) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    kind TEXT NOT NULL,
    date TEXT NOT NULL,                -- YYYY-MM-DD, empty for some unknown directives
    location TEXT NOT NULL,
    payload TEXT NOT NULL,             -- entry JSON
    UNIQUE(source, position)
);

CREATE INDEX IF NOT EXISTS idx_entries_kind
    ON entries(kind);

CREATE INDEX IF NOT EXISTS idx_entries_date
    ON entries(date);

CREATE TABLE IF NOT EXISTS parse_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.db.Exec(Schema); err != nil {
		return err
	}
	return nil
}
