package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidaq/internal/services"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item        Item
		fingerprint string
		createdAt   string
	)
	if err := row.Scan(&item.ID, &fingerprint, &item.DurationSeconds, &item.OriginalName, &createdAt); err != nil {
		return nil, err
	}
	fp, err := uuid.Parse(fingerprint)
	if err != nil {
		return nil, fmt.Errorf("item %d: parse fingerprint %q: %w", item.ID, fingerprint, err)
	}
	item.Fingerprint = fp
	if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		item.CreatedAt = parsed
	}
	return &item, nil
}

// Create inserts a new item and returns it with its assigned id. A fingerprint
// that already exists fails with services.ErrConstraintViolation.
func (s *Store) Create(ctx context.Context, durationSeconds float64, fingerprint uuid.UUID, originalName string) (*Item, error) {
	if fingerprint == uuid.Nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create", "fingerprint required", nil)
	}
	if strings.TrimSpace(originalName) == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create", "original name required", nil)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO items (fingerprint, duration_seconds, original_name, created_at) VALUES (?, ?, ?, ?)`,
		fingerprint.String(),
		durationSeconds,
		originalName,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, services.Wrap(services.ErrConstraintViolation, "catalog", "create",
				"fingerprint "+fingerprint.String()+" already cataloged", err)
		}
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d vanished after insert", id)
	}
	return item, nil
}

// GetByID fetches an item by identifier. It returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindByFingerprint returns the item carrying fingerprint, or nil, nil when
// none exists. The lookup is served by the unique fingerprint index.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint uuid.UUID) (*Item, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+itemColumns+` FROM items WHERE fingerprint = ?`,
		fingerprint.String(),
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return item, nil
}

// List returns items ordered by id, newest first. A limit <= 0 returns every item.
func (s *Store) List(ctx context.Context, limit int) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Count returns the number of cataloged items.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}
