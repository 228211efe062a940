package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/shared-calendar/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`

// Store implements store.Port with one row per document. Bodies are JSON;
// filters other than a bare id are evaluated after loading the collection.
type Store struct {
	pool *ConnectionPool
}

// Open connects to the database and creates the documents table.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the documents table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.DB().ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Select implements store.Port.
func (s *Store) Select(ctx context.Context, collection string, filter store.Filter) ([]store.Record, error) {
	return s.selectWith(ctx, s.pool.DB(), collection, filter)
}

// Exists implements store.Port.
func (s *Store) Exists(ctx context.Context, collection string, filter store.Filter) (bool, error) {
	if id, ok := filter.IDOnly(); ok {
		var one int
		err := s.pool.DB().QueryRowContext(ctx,
			`SELECT 1 FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&one)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, mapError(err)
		}
		return true, nil
	}
	records, err := s.Select(ctx, collection, filter)
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// Insert implements store.Port.
func (s *Store) Insert(ctx context.Context, collection string, record store.Record) error {
	id, err := record.ID()
	if err != nil {
		return err
	}
	body, err := store.Encode(record)
	if err != nil {
		return err
	}
	_, err = s.pool.DB().ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`, collection, id, string(body))
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Update implements store.Port. Every matching document is replaced inside
// one transaction.
func (s *Store) Update(ctx context.Context, collection string, filter store.Filter, record store.Record) error {
	id, err := record.ID()
	if err != nil {
		return err
	}
	body, err := store.Encode(record)
	if err != nil {
		return err
	}

	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		matched, err := s.selectWith(ctx, tx, collection, filter)
		if err != nil {
			return err
		}
		if len(matched) == 0 {
			return fmt.Errorf("%w: %s", store.ErrNotFound, collection)
		}
		for _, existing := range matched {
			existingID, _ := existing.ID()
			if existingID != id {
				return fmt.Errorf("%w: update of %s would change id to %s", store.ErrInvalidRecord, existingID, id)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`, string(body), collection, existingID); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// Delete implements store.Port.
func (s *Store) Delete(ctx context.Context, collection string, filter store.Filter) error {
	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		matched, err := s.selectWith(ctx, tx, collection, filter)
		if err != nil {
			return err
		}
		if len(matched) == 0 {
			return fmt.Errorf("%w: %s", store.ErrNotFound, collection)
		}
		for _, existing := range matched {
			existingID, _ := existing.ID()
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, existingID); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) selectWith(ctx context.Context, q queryer, collection string, filter store.Filter) ([]store.Record, error) {
	query := `SELECT body FROM documents WHERE collection = ?`
	args := []any{collection}
	if id, ok := filter.IDOnly(); ok {
		query += ` AND id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	records := make([]store.Record, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, mapError(err)
		}
		record, err := store.Decode([]byte(body))
		if err != nil {
			return nil, err
		}
		if filter.Match(record) {
			records = append(records, record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return records, nil
}
