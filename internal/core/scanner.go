package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Orchestrator runs the full pipeline for one server id.
type Orchestrator interface {
	RunForServer(ctx context.Context, serverID int64) error
}

// DeliveryServerScanner selects the servers due for a test run and
// drives the orchestrator over them, one at a time.
type DeliveryServerScanner struct {
	servers        DeliveryServerStore
	orchestrator   Orchestrator
	logger         *zap.Logger
	updatedWithin  time.Duration
	untestedWithin time.Duration
}

// NewDeliveryServerScanner creates a new delivery server scanner.
// updatedWithin selects active servers whose configuration recently
// changed; untestedWithin selects active servers with no recent
// verdict.
func NewDeliveryServerScanner(
	servers DeliveryServerStore,
	orchestrator Orchestrator,
	logger *zap.Logger,
	updatedWithin time.Duration,
	untestedWithin time.Duration,
) *DeliveryServerScanner {
	return &DeliveryServerScanner{
		servers:        servers,
		orchestrator:   orchestrator,
		logger:         logger,
		updatedWithin:  updatedWithin,
		untestedWithin: untestedWithin,
	}
}

// DueServers returns the union of recently reconfigured and stale
// active servers, deduplicated by id.
func (s *DeliveryServerScanner) DueServers(ctx context.Context) ([]DeliveryServer, error) {
	updated, err := s.servers.ListActiveUpdatedWithin(ctx, s.updatedWithin)
	if err != nil {
		return nil, fmt.Errorf("listing recently updated servers: %w", err)
	}
	stale, err := s.servers.ListActiveUntestedWithin(ctx, s.untestedWithin)
	if err != nil {
		return nil, fmt.Errorf("listing stale servers: %w", err)
	}

	seen := make(map[int64]struct{}, len(updated)+len(stale))
	var due []DeliveryServer
	for _, server := range append(updated, stale...) {
		if _, dup := seen[server.ID]; dup {
			continue
		}
		seen[server.ID] = struct{}{}
		due = append(due, server)
	}
	return due, nil
}

// Scan tests every due server sequentially. One server's failure never
// aborts the rest of the scan; failures are logged and counted. Scan
// stops early only when ctx is cancelled.
func (s *DeliveryServerScanner) Scan(ctx context.Context) error {
	due, err := s.DueServers(ctx)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		s.logger.Debug("No delivery servers due for testing")
		return nil
	}

	s.logger.Info("Scanning delivery servers", zap.Int("due", len(due)))

	failures := 0
	for _, server := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.orchestrator.RunForServer(ctx, server.ID); err != nil {
			failures++
			s.logger.Warn("Delivery server failed its test run",
				zap.Int64("server_id", server.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Scan complete",
		zap.Int("tested", len(due)),
		zap.Int("failed", failures))
	return nil
}
