package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"qroute/internal/decode"
	"qroute/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate creates the solutions table when missing. The decoded solution is
// stored as jsonb so route shapes stay queryable without schema churn.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS solutions (
		id text PRIMARY KEY,
		created_at timestamptz NOT NULL,
		variant text NOT NULL,
		encoding text NOT NULL,
		backend text NOT NULL,
		form text NOT NULL,
		num_vars integer NOT NULL,
		runtime_ms bigint NOT NULL,
		solution jsonb NOT NULL
	)`)
	return err
}

func (p *Postgres) SaveSolution(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(rec.Solution)
	if err != nil {
		return Record{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO solutions (id, created_at, variant, encoding, backend, form, num_vars, runtime_ms, solution)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, rec.CreatedAt, string(rec.Variant), rec.Encoding, rec.Backend, rec.Form, rec.NumVars, rec.RuntimeMS, payload)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (p *Postgres) GetSolution(ctx context.Context, id string) (Record, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, created_at, variant, encoding, backend, form, num_vars, runtime_ms, solution
		 FROM solutions WHERE id=$1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) ListSolutions(ctx context.Context, cursor string, limit int) ([]Record, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, created_at, variant, encoding, backend, form, num_vars, runtime_ms, solution
		 FROM solutions WHERE ($1 = '' OR id > $1) ORDER BY id LIMIT $2`, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var variant string
	var payload []byte
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &variant, &rec.Encoding, &rec.Backend, &rec.Form, &rec.NumVars, &rec.RuntimeMS, &payload); err != nil {
		return Record{}, err
	}
	rec.Variant = model.Variant(variant)
	rec.Solution = &decode.VRPSolution{}
	if err := json.Unmarshal(payload, rec.Solution); err != nil {
		return Record{}, err
	}
	return rec, nil
}
