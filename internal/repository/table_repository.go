package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/billiard-reservation/internal/model"
)

// TableRepo reads the billiard table catalogue.
type TableRepo struct{ DB *sql.DB }

func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{DB: db} }

// List returns all tables ordered by ID.
func (r *TableRepo) List(ctx context.Context) ([]model.BilliardTable, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT table_id, table_name, billiard_type, price FROM billiard_tables ORDER BY table_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BilliardTable, 0)
	for rows.Next() {
		var t model.BilliardTable
		if err := rows.Scan(&t.TableID, &t.TableName, &t.BilliardType, &t.Price); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByIDs returns the tables with the given IDs keyed by ID.  Unknown IDs
// are simply absent from the map.
func (r *TableRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.BilliardTable, error) {
	out := make(map[uint64]model.BilliardTable, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := "SELECT table_id, table_name, billiard_type, price FROM billiard_tables WHERE table_id IN (" +
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t model.BilliardTable
		if err := rows.Scan(&t.TableID, &t.TableName, &t.BilliardType, &t.Price); err != nil {
			return nil, err
		}
		out[t.TableID] = t
	}
	return out, rows.Err()
}
