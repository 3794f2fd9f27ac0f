package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"salonledger/internal/domain"
	"salonledger/internal/store"
	"salonledger/internal/xid"
)

const maxAdjustAttempts = 3

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection text NOT NULL,
		id text NOT NULL,
		owner_id text NOT NULL,
		seq bigserial,
		data jsonb NOT NULL DEFAULT '{}'::jsonb,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS documents_owner_seq_idx ON documents (collection, owner_id, seq)`,
	`CREATE INDEX IF NOT EXISTS documents_data_idx ON documents USING gin (data jsonb_path_ops)`,
}

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) GetCollection(ctx context.Context, collection string, ownerID string, filters store.Filters) ([]store.Record, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id required", store.ErrInvalidInput)
	}
	encoded, err := store.EncodePartial(filters)
	if err != nil {
		return nil, err
	}
	containment, err := json.Marshal(encoded)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND owner_id = $2 AND data @> $3::jsonb
		ORDER BY seq
	`, collection, ownerID, string(containment))
	if err != nil {
		return nil, remote("get collection", collection, err)
	}
	defer rows.Close()

	records := make([]store.Record, 0, 64)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, remote("get collection", collection, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, remote("get collection", collection, err)
	}
	return records, nil
}

func (s *Store) GetDocument(ctx context.Context, collection string, id string) (*store.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, remote("get document", collection, err)
	}
	return &record, nil
}

func (s *Store) AddDocument(ctx context.Context, collection string, ownerID string, data any) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", fmt.Errorf("%w: owner id required", store.ErrInvalidInput)
	}
	fields, err := store.EncodeFields(data)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}

	id := xid.New(strings.TrimSuffix(collection, "s"))
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, owner_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, now(), now())
	`, collection, id, ownerID, string(payload))
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: duplicate id %s", store.ErrInvalidInput, id)
		}
		return "", remote("add document", collection, err)
	}
	return id, nil
}

func (s *Store) UpdateDocument(ctx context.Context, collection string, id string, partial map[string]any) error {
	fields, err := store.EncodePartial(partial)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
	`, collection, id, string(payload))
	if err != nil {
		return remote("update document", collection, err)
	}
	return expectAffected(res, collection, "update document")
}

func (s *Store) DeleteDocument(ctx context.Context, collection string, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		return remote("delete document", collection, err)
	}
	return expectAffected(res, collection, "delete document")
}

// AdjustStock locks the affected product rows, checks that no resulting stock
// is negative, and writes every new level in one serializable transaction.
// Serialization conflicts are retried.
func (s *Store) AdjustStock(ctx context.Context, ownerID string, deltas []domain.StockDelta) error {
	var err error
	for attempt := 0; attempt < maxAdjustAttempts; attempt++ {
		err = s.adjustStockOnce(ctx, ownerID, deltas)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return remote("adjust stock", store.CollectionProducts, err)
}

func (s *Store) adjustStockOnce(ctx context.Context, ownerID string, deltas []domain.StockDelta) error {
	combined := make(map[string]int, len(deltas))
	ids := make([]string, 0, len(deltas))
	for _, delta := range deltas {
		if _, seen := combined[delta.ProductID]; !seen {
			ids = append(ids, delta.ProductID)
		}
		combined[delta.ProductID] += delta.Delta
	}
	if len(ids) == 0 {
		return nil
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return remote("adjust stock", store.CollectionProducts, err)
	}
	defer func() { _ = pgTx.Rollback() }()

	rows, err := pgTx.QueryContext(ctx, `
		SELECT id, COALESCE(data->>'name', ''), COALESCE((data->>'stock')::int, 0)
		FROM documents
		WHERE collection = $1 AND owner_id = $2 AND id = ANY($3)
		FOR UPDATE
	`, store.CollectionProducts, ownerID, ids)
	if err != nil {
		return wrapTxErr(err)
	}
	current := make(map[string]int, len(ids))
	names := make(map[string]string, len(ids))
	for rows.Next() {
		var id, name string
		var stock int
		if err := rows.Scan(&id, &name, &stock); err != nil {
			_ = rows.Close()
			return wrapTxErr(err)
		}
		current[id] = stock
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return wrapTxErr(err)
	}
	_ = rows.Close()

	for _, id := range ids {
		stock, ok := current[id]
		if !ok {
			return fmt.Errorf("product %s: %w", id, store.ErrNotFound)
		}
		if stock+combined[id] < 0 {
			return &store.InsufficientStockError{
				ProductID: id,
				Name:      names[id],
				Available: stock,
				Requested: -combined[id],
			}
		}
	}

	for _, id := range ids {
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE documents
			SET data = jsonb_set(data, '{stock}', to_jsonb($4::int)), updated_at = now()
			WHERE collection = $1 AND owner_id = $2 AND id = $3
		`, store.CollectionProducts, ownerID, id, current[id]+combined[id]); err != nil {
			return wrapTxErr(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return wrapTxErr(err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (store.Record, error) {
	var record store.Record
	var data []byte
	if err := row.Scan(&record.ID, &record.OwnerID, &data, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return store.Record{}, err
	}
	record.Data = json.RawMessage(data)
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func expectAffected(res sql.Result, collection string, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return remote(op, collection, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func remote(op string, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &store.RemoteError{Op: op, Collection: collection, Err: err}
}

// wrapTxErr leaves serialization failures unwrapped so AdjustStock can retry
// them.
func wrapTxErr(err error) error {
	if isSerializationFailure(err) {
		return err
	}
	return remote("adjust stock", store.CollectionProducts, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
