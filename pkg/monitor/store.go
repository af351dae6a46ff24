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
	"sync"

	"github.com/aztell/callwatch/pkg/models"
)

// Store is the in-memory entity store holding the current view of all
// monitored endpoints, trunks and sessions. All mutations are shallow
// merge-patches: empty patch fields leave the target field untouched, so
// partial events from different upstream families accumulate into one
// entity. Returned entities are copies; callers never see live map values.
type Store struct {
	mu        sync.RWMutex
	clock     Clock
	endpoints map[string]*models.Endpoint
	trunks    map[string]*models.Trunk
	sessions  map[string]*models.Session
}

// NewStore creates an empty store. A nil clock falls back to real time.
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = realClock{}
	}

	return &Store{
		clock:     clock,
		endpoints: make(map[string]*models.Endpoint),
		trunks:    make(map[string]*models.Trunk),
		sessions:  make(map[string]*models.Session),
	}
}

// UpsertEndpoint applies a merge-patch to the endpoint with the given ID,
// creating it if absent, and returns a copy of the result.
func (s *Store) UpsertEndpoint(id, sourceHost string, patch models.EndpointPatch) *models.Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	ep, ok := s.endpoints[id]
	if !ok {
		ep = &models.Endpoint{ID: id, Kind: models.KindEndpoint}
		s.endpoints[id] = ep
	}

	if patch.Status != "" {
		ep.Status = patch.Status
	}

	if patch.Technology != "" {
		ep.Technology = patch.Technology
	}

	ep.SourceHost = sourceHost
	ep.LastSeen = s.clock.Now()

	out := *ep

	return &out
}

// UpsertTrunk applies a merge-patch to the trunk with the given ID, creating
// it if absent, and returns a copy of the result.
func (s *Store) UpsertTrunk(id, sourceHost string, patch models.TrunkPatch) *models.Trunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.trunks[id]
	if !ok {
		tr = &models.Trunk{ID: id, Kind: models.KindTrunk}
		s.trunks[id] = tr
	}

	if patch.Status != "" {
		tr.Status = patch.Status
	}

	if patch.Technology != "" {
		tr.Technology = patch.Technology
	}

	tr.SourceHost = sourceHost
	tr.LastSeen = s.clock.Now()

	out := *tr

	return &out
}

// UpsertSession applies a merge-patch to the session with the given ID,
// creating it if absent. StartedAt is stamped once, on the first patch that
// carries the Start flag, and never overwritten afterwards.
func (s *Store) UpsertSession(id, sourceHost string, patch models.SessionPatch) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &models.Session{ID: id}
		s.sessions[id] = sess
	}

	if patch.Originator != "" {
		sess.Originator = patch.Originator
	}

	if patch.Destination != "" {
		sess.Destination = patch.Destination
	}

	if patch.ChannelRef != "" {
		sess.ChannelRef = patch.ChannelRef
	}

	if patch.State != "" {
		sess.State = patch.State
	}

	if patch.Bridged != nil {
		sess.Bridged = *patch.Bridged
	}

	if patch.Start && sess.StartedAt.IsZero() {
		sess.StartedAt = s.clock.Now()
	}

	sess.SourceHost = sourceHost
	sess.LastSeen = s.clock.Now()

	out := *sess

	return &out
}

// RemoveSession deletes the session with the given ID and returns a copy
// with EndedAt stamped, or nil if no such session existed. Removal of an
// unknown session is a no-op so duplicate hangups stay idempotent.
func (s *Store) RemoveSession(id string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}

	delete(s.sessions, id)

	out := *sess
	ended := s.clock.Now()
	out.EndedAt = &ended

	return &out
}

// ClearSource drops every entity last reported by the given host and
// returns the number removed. Entities owned by other hosts are untouched.
func (s *Store) ClearSource(sourceHost string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for id, ep := range s.endpoints {
		if ep.SourceHost == sourceHost {
			delete(s.endpoints, id)
			removed++
		}
	}

	for id, tr := range s.trunks {
		if tr.SourceHost == sourceHost {
			delete(s.trunks, id)
			removed++
		}
	}

	for id, sess := range s.sessions {
		if sess.SourceHost == sourceHost {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed
}

// SessionIDsBySource returns the IDs of all sessions owned by the given
// host. The sweep uses this to detect sessions the upstream no longer
// lists.
func (s *Store) SessionIDsBySource(sourceHost string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))

	for id, sess := range s.sessions {
		if sess.SourceHost == sourceHost {
			ids = append(ids, id)
		}
	}

	return ids
}

// Snapshot returns a deep copy of all three collections.
func (s *Store) Snapshot() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &models.Snapshot{
		Endpoints: make(map[string]*models.Endpoint, len(s.endpoints)),
		Trunks:    make(map[string]*models.Trunk, len(s.trunks)),
		Sessions:  make(map[string]*models.Session, len(s.sessions)),
	}

	for id, ep := range s.endpoints {
		c := *ep
		snap.Endpoints[id] = &c
	}

	for id, tr := range s.trunks {
		c := *tr
		snap.Trunks[id] = &c
	}

	for id, sess := range s.sessions {
		c := *sess
		snap.Sessions[id] = &c
	}

	return snap
}
