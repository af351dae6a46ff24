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

// Package models defines the canonical entity model shared by the monitor
// engine, the publish sinks and the HTTP API.
package models

import "time"

// EntityKind identifies one of the three monitored collections.
type EntityKind string

const (
	KindEndpoint EntityKind = "endpoint"
	KindTrunk    EntityKind = "trunk"
	KindSession  EntityKind = "session"
)

// Endpoint is a monitored line/extension registered against one AMI host.
// Endpoints are keyed by bare ID across hosts: two hosts reporting the same
// extension number overwrite each other, last writer wins. This mirrors the
// upstream dialplan convention of globally unique extension numbers.
type Endpoint struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Technology string     `json:"tech,omitempty"`
	Kind       EntityKind `json:"kind"`
	SourceHost string     `json:"source_host"`
	LastSeen   time.Time  `json:"last_seen"`
}

// Trunk is a monitored inter-system registration/gateway. Same bare-ID
// keying and last-write-wins semantics as Endpoint.
type Trunk struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Technology string     `json:"tech,omitempty"`
	Kind       EntityKind `json:"kind"`
	SourceHost string     `json:"source_host"`
	LastSeen   time.Time  `json:"last_seen"`
}

// Session is an active call leg, keyed by the upstream Uniqueid. It exists
// from the first event that names its key until an explicit hangup or a
// staleness eviction by the drift-correction sweep.
type Session struct {
	ID          string     `json:"id"`
	Originator  string     `json:"src,omitempty"`
	Destination string     `json:"dst,omitempty"`
	ChannelRef  string     `json:"channel,omitempty"`
	State       string     `json:"state,omitempty"`
	Bridged     bool       `json:"bridged"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	SourceHost  string     `json:"source_host"`
	LastSeen    time.Time  `json:"last_seen"`
}

// EndpointPatch is a shallow merge-patch for an Endpoint. Empty fields are
// left untouched on the target entity.
type EndpointPatch struct {
	Status     string
	Technology string
}

// TrunkPatch is a shallow merge-patch for a Trunk.
type TrunkPatch struct {
	Status     string
	Technology string
}

// SessionPatch is a shallow merge-patch for a Session. Bridged uses a
// pointer because false is a meaningful value. Start marks a creation-family
// event so the store can stamp StartedAt exactly once.
type SessionPatch struct {
	Originator  string
	Destination string
	ChannelRef  string
	State       string
	Bridged     *bool
	Start       bool
}

// Snapshot is a point-in-time copy of all three collections, safe to hand to
// a newly subscribing observer.
type Snapshot struct {
	Endpoints map[string]*Endpoint `json:"endpoints"`
	Trunks    map[string]*Trunk    `json:"trunks"`
	Sessions  map[string]*Session  `json:"sessions"`
}
