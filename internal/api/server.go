package api

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"qroute/internal/config"
	"qroute/internal/cost"
	"qroute/internal/model"
	"qroute/internal/solver"
	"qroute/internal/store"
	"qroute/internal/webhooks"
)

type Server struct {
	Cfg      config.Config
	Store    store.Store
	Broker   *Broker
	Notifier *webhooks.Notifier

	limiter  *rate.Limiter
	backends map[string]solver.Adapter
}

// NewServer wires the store, event broker and notifier from configuration.
// Without a database URL the in-memory store is used.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := sp.Migrate(context.Background()); err != nil {
			return nil, err
		}
		s = sp
	}
	return &Server{
		Cfg:      cfg,
		Store:    s,
		Broker:   NewBroker(),
		Notifier: webhooks.NewNotifier(cfg.Webhooks),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
		backends: map[string]solver.Adapter{
			"annealer": solver.Annealer{},
			"exact":    solver.Exact{},
		},
	}, nil
}

// costFunc resolves the requested cost function, falling back to the
// configured external matrix service, optionally fronted by the Redis cache.
func (s *Server) costFunc(ctx context.Context, name string) (model.CostFunc, error) {
	if name == "api" {
		if s.Cfg.Matrix.APIURL == "" {
			return nil, fmt.Errorf("no matrix api configured")
		}
		apiClient := &cost.MatrixAPI{BaseURL: s.Cfg.Matrix.APIURL, APIKey: s.Cfg.Matrix.APIKey}
		fn := apiClient.CostFunc(ctx)
		if s.Cfg.RedisURL != "" {
			cache, err := cost.NewMatrixCache(s.Cfg.RedisURL, fn, s.Cfg.Matrix.CacheTTL)
			if err != nil {
				return nil, err
			}
			return cache.Compute, nil
		}
		return fn, nil
	}
	fn, ok := cost.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown cost function %q", name)
	}
	return fn, nil
}
