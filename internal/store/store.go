// Package store is the transformation memory: a SQLite cache keyed by
// normalized fragment text, language, and instruction hash. Fragments
// identical across files or runs are served from here at zero token cost.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/reflow/internal"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transform_memory (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		lang TEXT NOT NULL,
		instruction_hash TEXT NOT NULL,
		output_text TEXT NOT NULL,
		service_used TEXT,
		usage_count INTEGER DEFAULT 1,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, lang, instruction_hash)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		service TEXT,
		started_at TIMESTAMP,
		files INTEGER,
		input_tokens INTEGER,
		output_tokens INTEGER,
		cost_usd REAL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InstructionKey derives the cache key component for an instruction
// template and model pair. Different instructions or models must never
// share cached output.
func InstructionKey(instructions, model string) string {
	sum := sha256.Sum256([]byte(instructions + "\x00" + model))
	return hex.EncodeToString(sum[:8])
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent cache key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// GetCached returns the cached transformation of sourceText, if any, and
// bumps its usage counters.
func (s *Store) GetCached(ctx context.Context, sourceText, lang, instructionKey string) (string, bool, error) {
	normalized := normalizeText(sourceText)

	var id, output string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, output_text FROM transform_memory
		 WHERE source_text = ? AND lang = ? AND instruction_hash = ?`,
		normalized, lang, instructionKey).Scan(&id, &output)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	_, _ = s.db.ExecContext(ctx,
		`UPDATE transform_memory SET usage_count = usage_count + 1, last_used = ? WHERE id = ?`,
		time.Now(), id)

	return output, true, nil
}

// Save records a successful transformation in the memory.
func (s *Store) Save(ctx context.Context, sourceText, lang, instructionKey, outputText, serviceUsed string) error {
	normalized := normalizeText(sourceText)
	id := fmt.Sprintf("tm_%d", time.Now().UnixNano())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transform_memory (id, source_text, lang, instruction_hash, output_text, service_used)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_text, lang, instruction_hash)
		 DO UPDATE SET output_text = excluded.output_text,
		               service_used = excluded.service_used,
		               last_used = CURRENT_TIMESTAMP`,
		id, normalized, lang, instructionKey, outputText, serviceUsed)
	return err
}

// MemoryEntry represents a row in the transform_memory table.
type MemoryEntry struct {
	ID          string
	SourceText  string
	Lang        string
	ServiceUsed string
	UsageCount  int
	LastUsed    time.Time
	OutputText  string
}

// ListMemory returns all memory entries, most recently used first.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, lang, COALESCE(service_used, ''), usage_count, last_used, output_text
		 FROM transform_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceText, &e.Lang, &e.ServiceUsed, &e.UsageCount, &e.LastUsed, &e.OutputText); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteMemory removes a single memory entry by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transform_memory WHERE id = ?`, id)
	return err
}

// ClearMemory deletes all memory entries and returns how many were removed.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transform_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SaveSession records the end-of-run summary.
func (s *Store) SaveSession(ctx context.Context, rec internal.SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, service, started_at, files, input_tokens, output_tokens, cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Service, rec.StartedAt, rec.Files, rec.InputTokens, rec.OutputTokens, rec.CostUSD)
	return err
}

// Stats aggregates cache size and total / saved usage counts.
type Stats struct {
	Entries   int
	TotalUses int
	CacheHits int
	Sessions  int
	TotalCost float64
}

// GetStats summarizes the memory and session tables.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(usage_count), 0) FROM transform_memory`).
		Scan(&st.Entries, &st.TotalUses)
	if err != nil {
		return st, err
	}
	// Each usage beyond the first was a service call avoided.
	st.CacheHits = st.TotalUses - st.Entries

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(cost_usd), 0) FROM sessions`).
		Scan(&st.Sessions, &st.TotalCost)
	return st, err
}
