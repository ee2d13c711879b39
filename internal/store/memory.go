package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set. It
// pages by id like the Postgres store so the two are interchangeable.
type Memory struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemory() *Memory {
	return &Memory{records: map[string]Record{}}
}

func (m *Memory) SaveSolution(ctx context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *Memory) GetSolution(ctx context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListSolutions(ctx context.Context, cursor string, limit int) ([]Record, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		if id > cursor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := []Record{}
	next := ""
	for _, id := range ids {
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, m.records[id])
	}
	return out, next, nil
}
