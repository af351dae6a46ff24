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

	"github.com/aztell/callwatch/pkg/logger"
	"github.com/aztell/callwatch/pkg/models"
	"github.com/aztell/callwatch/pkg/sink"
)

// Router applies normalized facts to the store and forwards the resulting
// change events to the publish sink. Publish failures are logged and do not
// block state application; the store is the source of truth and subscribers
// resync from the next inventory cycle.
type Router struct {
	store  *Store
	sink   sink.Sink
	clock  Clock
	logger logger.Logger
}

// NewRouter creates a router over the given store and sink.
func NewRouter(store *Store, s sink.Sink, clock Clock, log logger.Logger) *Router {
	if clock == nil {
		clock = realClock{}
	}

	return &Router{store: store, sink: s, clock: clock, logger: log}
}

// Route applies one fact attributed to sourceHost. FactIgnore is a no-op.
func (r *Router) Route(ctx context.Context, sourceHost string, fact Fact) {
	switch fact.Kind {
	case FactEndpoint:
		ep := r.store.UpsertEndpoint(fact.Key, sourceHost, fact.Endpoint)
		r.publish(ctx, &models.ChangeEvent{
			Event:      models.EventEndpointStatus,
			Kind:       models.KindEndpoint,
			Subject:    ep.ID,
			Data:       ep,
			SourceHost: sourceHost,
		})
	case FactTrunk:
		tr := r.store.UpsertTrunk(fact.Key, sourceHost, fact.Trunk)
		r.publish(ctx, &models.ChangeEvent{
			Event:      models.EventTrunkStatus,
			Kind:       models.KindTrunk,
			Subject:    tr.ID,
			Data:       tr,
			SourceHost: sourceHost,
		})
	case FactSession:
		sess := r.store.UpsertSession(fact.Key, sourceHost, fact.Session)
		r.publish(ctx, &models.ChangeEvent{
			Event:      models.EventCallUpdate,
			Kind:       models.KindSession,
			Subject:    sess.ID,
			Data:       sess,
			SourceHost: sourceHost,
		})
	case FactSessionEnd:
		r.endSession(ctx, sourceHost, fact.Key, fact.Reason)
	case FactBatchComplete:
		r.publishCollection(ctx, sourceHost, fact.Batch)
	case FactIgnore:
	}
}

// EvictSession removes a session on behalf of the drift-correction sweep
// and reports whether a session was actually removed.
func (r *Router) EvictSession(ctx context.Context, sourceHost, id, reason string) bool {
	return r.endSession(ctx, sourceHost, id, reason)
}

func (r *Router) endSession(ctx context.Context, sourceHost, id, reason string) bool {
	sess := r.store.RemoveSession(id)
	if sess == nil {
		return false
	}

	r.publish(ctx, &models.ChangeEvent{
		Event:      models.EventCallEnd,
		Kind:       models.KindSession,
		Subject:    id,
		Data:       sess,
		SourceHost: sourceHost,
		Reason:     reason,
	})

	return true
}

// publishCollection emits the full collection for the kind whose inventory
// listing just completed, letting subscribers reconcile without diffing the
// per-row updates.
func (r *Router) publishCollection(ctx context.Context, sourceHost string, kind models.EntityKind) {
	snap := r.store.Snapshot()

	event := &models.ChangeEvent{
		Kind:       kind,
		SourceHost: sourceHost,
	}

	switch kind {
	case models.KindEndpoint:
		event.Event = models.EventEndpoints
		event.Data = snap.Endpoints
	case models.KindTrunk:
		event.Event = models.EventTrunks
		event.Data = snap.Trunks
	case models.KindSession:
		event.Event = models.EventCalls
		event.Data = snap.Sessions
	default:
		return
	}

	r.publish(ctx, event)
}

func (r *Router) publish(ctx context.Context, event *models.ChangeEvent) {
	if r.sink == nil {
		return
	}

	event.Timestamp = r.clock.Now()

	if err := r.sink.Publish(ctx, event); err != nil {
		r.logger.Warn().
			Err(err).
			Str("event", event.Event).
			Str("subject", event.Subject).
			Msg("Failed to publish change event")
	}
}
