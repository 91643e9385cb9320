package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"modbusmgr/internal/domain"
	"modbusmgr/internal/repository"
)

var _ repository.Ledger = (*Ledger)(nil)

// Ledger implements repository.Ledger using SQLite
type Ledger struct {
	db *sql.DB
}

// New opens (creating if needed) the ledger at dbPath.
// ":memory:" gives a private in-memory ledger.
func New(dbPath string) (*Ledger, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases shared and writes serialized
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return l, nil
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS peripherals (
		identifier TEXT PRIMARY KEY,
		resource_id TEXT,
		slave_id INTEGER,
		payload JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_peripherals_resource ON peripherals(resource_id);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Known lists recorded entries matching pattern
func (l *Ledger) Known(ctx context.Context, pattern string) ([]domain.RegistryEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT identifier, resource_id
		FROM peripherals
		WHERE identifier LIKE ? ESCAPE '\'
		ORDER BY identifier
	`, likePattern(pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to query peripherals: %w", err)
	}
	defer rows.Close()

	var entries []domain.RegistryEntry
	for rows.Next() {
		var (
			identifier string
			resourceID sql.NullString
		)
		if err := rows.Scan(&identifier, &resourceID); err != nil {
			return nil, fmt.Errorf("failed to scan peripheral: %w", err)
		}
		entries = append(entries, domain.RegistryEntry{
			ID:         nullToString(resourceID),
			Identifier: identifier,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating peripherals: %w", err)
	}

	return entries, nil
}

// Recorded upserts a registered peripheral
func (l *Ledger) Recorded(ctx context.Context, entry domain.RegistryEntry, p domain.Peripheral) error {
	identifier := entry.Identifier
	if identifier == "" {
		identifier = p.Identifier
	}
	if identifier == "" {
		return fmt.Errorf("record peripheral: empty identifier")
	}
	p.Identifier = identifier

	payload, err := marshalPeripheral(p)
	if err != nil {
		return fmt.Errorf("failed to marshal peripheral: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO peripherals (identifier, resource_id, slave_id, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			resource_id = excluded.resource_id,
			slave_id = excluded.slave_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, identifier, stringToNull(entry.ID), p.SlaveID, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record peripheral %s: %w", identifier, err)
	}

	return nil
}

// Forgotten deletes a peripheral. Unknown identifiers are not an error.
func (l *Ledger) Forgotten(ctx context.Context, identifier string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM peripherals WHERE identifier = ?`, identifier); err != nil {
		return fmt.Errorf("failed to forget peripheral %s: %w", identifier, err)
	}
	return nil
}

// Peripherals returns every recorded peripheral
func (l *Ledger) Peripherals(ctx context.Context) ([]domain.Peripheral, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT payload, slave_id
		FROM peripherals
		ORDER BY identifier
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query peripherals: %w", err)
	}
	defer rows.Close()

	var out []domain.Peripheral
	for rows.Next() {
		var (
			payload string
			slaveID sql.NullInt64
		)
		if err := rows.Scan(&payload, &slaveID); err != nil {
			return nil, fmt.Errorf("failed to scan peripheral: %w", err)
		}

		p, err := unmarshalPeripheral(payload, slaveID)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal peripheral: %w", err)
		}
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating peripherals: %w", err)
	}

	return out, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}
