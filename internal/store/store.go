package store

import (
	"context"
	"errors"
	"time"

	"qroute/internal/decode"
	"qroute/internal/model"
)

// Record is one persisted solve outcome.
type Record struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"createdAt"`
	Variant   model.Variant       `json:"variant"`
	Encoding  string              `json:"encoding"`
	Backend   string              `json:"backend"`
	Form      string              `json:"form"` // qubo or cqm
	NumVars   int                 `json:"numVars"`
	RuntimeMS int64               `json:"runtimeMs"`
	Solution  *decode.VRPSolution `json:"solution"`
}

// Store is the persistence interface used by the API server.
type Store interface {
	SaveSolution(ctx context.Context, rec Record) (Record, error)
	GetSolution(ctx context.Context, id string) (Record, error)
	ListSolutions(ctx context.Context, cursor string, limit int) ([]Record, string, error)
}

var ErrNotFound = errors.New("not found")
