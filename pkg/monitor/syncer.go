/*
 * Copyright 2025 Aztell Solucoes em Telefonia IP.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/aztell/callwatch/pkg/ami"
	"github.com/aztell/callwatch/pkg/logger"
	"github.com/aztell/callwatch/pkg/models"
)

// SyncState is the reconciliation state of one upstream host.
type SyncState string

const (
	SyncDisconnected SyncState = "disconnected"
	SyncConnecting   SyncState = "connecting"
	SyncSyncing      SyncState = "syncing"
	SyncSteady       SyncState = "steady"
)

// Syncer drives reconciliation for a single upstream host: it consumes the
// source's event and lifecycle streams, routes normalized facts into the
// store, issues the periodic inventory batch, and evicts sessions the
// upstream has stopped listing.
//
// All state transitions happen on a single goroutine inside Start; the
// mutex only guards the State accessor.
type Syncer struct {
	source Source
	router *Router
	store  *Store
	clock  Clock
	logger logger.Logger

	settleDelay   time.Duration
	sweepInterval time.Duration
	staleSweeps   int

	mu    sync.RWMutex
	state SyncState

	// Sweep bookkeeping. confirmed collects session IDs re-listed by the
	// current inventory cycle; missed counts consecutive cycles a session
	// went unlisted.
	confirmed map[string]struct{}
	missed    map[string]int
}

// NewSyncer creates a syncer for one source. Durations and the stale
// threshold come pre-validated from Config.
func NewSyncer(source Source, router *Router, store *Store, clock Clock, log logger.Logger, settleDelay, sweepInterval time.Duration, staleSweeps int) *Syncer {
	if clock == nil {
		clock = realClock{}
	}

	return &Syncer{
		source:        source,
		router:        router,
		store:         store,
		clock:         clock,
		logger:        log,
		settleDelay:   settleDelay,
		sweepInterval: sweepInterval,
		staleSweeps:   staleSweeps,
		state:         SyncDisconnected,
		confirmed:     make(map[string]struct{}),
		missed:        make(map[string]int),
	}
}

// State returns the current reconciliation state.
func (s *Syncer) State() SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *Syncer) setState(state SyncState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.logger.Info().
		Str("host", s.source.Host()).
		Str("state", string(state)).
		Msg("Sync state changed")
}

// Start runs the reconciliation loop until ctx is canceled.
func (s *Syncer) Start(ctx context.Context) error {
	s.setState(SyncConnecting)

	ticker := s.clock.Ticker(s.sweepInterval)
	defer ticker.Stop()

	var settleCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			s.setState(SyncDisconnected)
			return ctx.Err()

		case lc, ok := <-s.source.Lifecycle():
			if !ok {
				return nil
			}

			settleCh = s.handleLifecycle(lc)

		case <-settleCh:
			settleCh = nil

			s.issueInventoryBatch(ctx)
			s.setState(SyncSteady)

		case evt, ok := <-s.source.Events():
			if !ok {
				return nil
			}

			s.handleEvent(ctx, evt)

		case <-ticker.Chan():
			if s.State() == SyncSteady {
				s.issueInventoryBatch(ctx)
			}
		}
	}
}

// Stop implements lifecycle.Service; the loop exits via ctx cancellation.
func (s *Syncer) Stop(_ context.Context) error {
	return nil
}

// handleLifecycle reacts to connect/disconnect signals. On connect the
// host's previous contribution is dropped before resyncing, so entities
// that vanished during the outage cannot survive the reconnect. The
// returned channel fires after the settle delay, giving the event stream a
// moment to quiesce before the first inventory batch.
func (s *Syncer) handleLifecycle(lc ami.LifecycleEvent) <-chan time.Time {
	host := s.source.Host()

	switch lc.State {
	case ami.StateConnected:
		removed := s.store.ClearSource(host)
		if removed > 0 {
			s.logger.Info().
				Str("host", host).
				Int("removed", removed).
				Msg("Cleared stale entities after reconnect")
		}

		s.resetSweep()
		s.setState(SyncSyncing)

		return s.clock.After(s.settleDelay)

	case ami.StateDisconnected:
		s.logger.Warn().
			Str("host", host).
			Err(lc.Err).
			Msg("Upstream disconnected")

		s.resetSweep()
		s.setState(SyncConnecting)
	}

	return nil
}

func (s *Syncer) handleEvent(ctx context.Context, evt ami.Event) {
	fact := Normalize(evt)

	if fact.Kind == FactSession && fact.Inventory {
		s.confirmed[fact.Key] = struct{}{}
	}

	s.router.Route(ctx, s.source.Host(), fact)

	if fact.Kind == FactBatchComplete && fact.Batch == models.KindSession {
		s.finishSweep(ctx)
	}
}

// finishSweep runs when the active-channel listing completes. Sessions the
// listing confirmed get their miss counter reset; the rest accumulate a
// miss and are evicted once the threshold of consecutive misses is
// reached. One missed listing is tolerated because a session started
// between the action and its reply legitimately goes unlisted.
func (s *Syncer) finishSweep(ctx context.Context) {
	host := s.source.Host()

	for _, id := range s.store.SessionIDsBySource(host) {
		if _, ok := s.confirmed[id]; ok {
			delete(s.missed, id)
			continue
		}

		s.missed[id]++

		if s.missed[id] >= s.staleSweeps {
			delete(s.missed, id)

			if s.router.EvictSession(ctx, host, id, models.ReasonStale) {
				s.logger.Info().
					Str("host", host).
					Str("session", id).
					Msg("Evicted stale session")
			}
		}
	}

	s.confirmed = make(map[string]struct{})
}

func (s *Syncer) resetSweep() {
	s.confirmed = make(map[string]struct{})
	s.missed = make(map[string]int)
}

// issueInventoryBatch fires the full set of listing actions. Individual
// failures are logged and skipped: a host running only one signaling stack
// rejects the other stack's listings with an error response, which is
// normal.
func (s *Syncer) issueInventoryBatch(ctx context.Context) {
	for _, action := range inventoryActions {
		if err := s.source.SendAction(ctx, action); err != nil {
			s.logger.Debug().
				Err(err).
				Str("host", s.source.Host()).
				Str("action", action).
				Msg("Inventory action failed")
		}
	}
}
