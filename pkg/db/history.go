package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lucasew/contapila/pkg/parser"
)

// ParseRecord represents a parse history record.
type ParseRecord struct {
	ID            int64
	Source        string
	ContentHash   string
	EntryCount    int
	UnknownCount  int
	BalanceErrors int
	ParsedAt      time.Time
}

// IndexedEntry is an entry row of the index.
type IndexedEntry struct {
	Source   string
	Position int
	Kind     string
	Date     string
	Location string
	Payload  json.RawMessage
}

// History manages parse history operations.
type History struct {
	conn *Connection
}

// NewHistory creates a new History instance.
func NewHistory(conn *Connection) *History {
	return &History{conn: conn}
}

// ContentHash returns the hex sha256 of a file's content.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// RecordParse stores the result of parsing a source. The previous entries
// of the source are replaced in the same transaction. EntryCount and
// UnknownCount are derived from entries.
func (h *History) RecordParse(record ParseRecord, entries []parser.Entry) error {
	record.EntryCount = len(entries)
	record.UnknownCount = 0
	for _, e := range entries {
		if e.Kind == parser.KindUnknownDirective {
			record.UnknownCount++
		}
	}

	return h.conn.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO parse_history (source, content_hash, entry_count, unknown_count, balance_errors)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(source) DO UPDATE SET
				content_hash = excluded.content_hash,
				entry_count = excluded.entry_count,
				unknown_count = excluded.unknown_count,
				balance_errors = excluded.balance_errors,
				parsed_at = CURRENT_TIMESTAMP
		`,
			record.Source,
			record.ContentHash,
			record.EntryCount,
			record.UnknownCount,
			record.BalanceErrors,
		)
		if err != nil {
			return fmt.Errorf("failed to record parse: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM entries WHERE source = ?`, record.Source); err != nil {
			return fmt.Errorf("failed to clear entries: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO entries (source, position, kind, date, location, payload)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare entry insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range entries {
			payload, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to encode entry %d: %w", i, err)
			}
			if _, err := stmt.Exec(record.Source, i, e.Kind, e.Date, e.Location(), string(payload)); err != nil {
				return fmt.Errorf("failed to insert entry %d: %w", i, err)
			}
		}
		return nil
	})
}

// IsUpToDate reports whether source was last parsed with the same content.
func (h *History) IsUpToDate(source, contentHash string) (bool, error) {
	query := `
		SELECT COUNT(*) as count FROM parse_history
		WHERE source = ? AND content_hash = ?
	`

	var count int
	err := h.conn.db.QueryRow(query, source, contentHash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check parse history: %w", err)
	}

	return count > 0, nil
}

// GetParseRecord retrieves the record of a source, or nil when the source
// was never parsed.
func (h *History) GetParseRecord(source string) (*ParseRecord, error) {
	query := `
		SELECT id, source, content_hash, entry_count, unknown_count, balance_errors, parsed_at
		FROM parse_history
		WHERE source = ?
	`

	var record ParseRecord
	err := h.conn.db.QueryRow(query, source).Scan(
		&record.ID,
		&record.Source,
		&record.ContentHash,
		&record.EntryCount,
		&record.UnknownCount,
		&record.BalanceErrors,
		&record.ParsedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parse record: %w", err)
	}

	return &record, nil
}

// ListParseRecords retrieves every record ordered by source.
func (h *History) ListParseRecords() ([]ParseRecord, error) {
	rows, err := h.conn.db.Query(`
		SELECT id, source, content_hash, entry_count, unknown_count, balance_errors, parsed_at
		FROM parse_history
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list parse records: %w", err)
	}
	defer rows.Close()

	var records []ParseRecord
	for rows.Next() {
		var record ParseRecord
		if err := rows.Scan(
			&record.ID,
			&record.Source,
			&record.ContentHash,
			&record.EntryCount,
			&record.UnknownCount,
			&record.BalanceErrors,
			&record.ParsedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan parse record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// EntriesByKind retrieves indexed entries of one kind in source and
// document order.
func (h *History) EntriesByKind(kind string) ([]IndexedEntry, error) {
	rows, err := h.conn.db.Query(`
		SELECT source, position, kind, date, location, payload
		FROM entries
		WHERE kind = ?
		ORDER BY source, position
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries by kind: %w", err)
	}
	defer rows.Close()

	var entries []IndexedEntry
	for rows.Next() {
		var e IndexedEntry
		var payload string
		if err := rows.Scan(&e.Source, &e.Position, &e.Kind, &e.Date, &e.Location, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// DeleteSource removes a source and its entries so the next run parses it
// again.
func (h *History) DeleteSource(source string) (bool, error) {
	result, err := h.conn.db.Exec(`DELETE FROM parse_history WHERE source = ?`, source)
	if err != nil {
		return false, fmt.Errorf("failed to delete parse record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Stats represents parse statistics.
type Stats struct {
	TotalFiles        int
	TotalEntries      int
	UnknownDirectives int
	BalanceErrors     int
	ByKind            map[string]int
	LastParse         sql.NullString
}

// GetStats retrieves parse statistics.
func (h *History) GetStats() (*Stats, error) {
	stats := Stats{ByKind: map[string]int{}}

	err := h.conn.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(entry_count), 0), COALESCE(SUM(unknown_count), 0), COALESCE(SUM(balance_errors), 0)
		FROM parse_history
	`).Scan(&stats.TotalFiles, &stats.TotalEntries, &stats.UnknownDirectives, &stats.BalanceErrors)
	if err != nil {
		return nil, fmt.Errorf("failed to get totals: %w", err)
	}

	rows, err := h.conn.db.Query(`SELECT kind, COUNT(*) FROM entries GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to get kind counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan kind count: %w", err)
		}
		stats.ByKind[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get kind counts: %w", err)
	}

	err = h.conn.db.QueryRow(`SELECT MAX(parsed_at) FROM parse_history`).Scan(&stats.LastParse)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last parse time: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value.
func (h *History) GetMetadata(key string) (string, error) {
	var value string
	err := h.conn.db.QueryRow(`SELECT value FROM parse_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (h *History) SetMetadata(key, value string) error {
	query := `
		INSERT INTO parse_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := h.conn.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
