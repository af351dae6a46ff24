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

package models

import "time"

// Change event kinds carried in the ChangeEvent envelope.
const (
	EventEndpointStatus = "endpoint_status"
	EventTrunkStatus    = "trunk_status"
	EventCallUpdate     = "call_update"
	EventCallEnd        = "call_end"

	// Full-collection events emitted when an inventory listing completes,
	// so subscribers can reconcile without per-row diffing.
	EventEndpoints = "endpoints"
	EventTrunks    = "trunks"
	EventCalls     = "calls"

	EventSnapshot = "snapshot"
	EventHello    = "hello"
)

// Session removal reasons.
const (
	ReasonHangup = "hangup"
	ReasonStale  = "stale"
)

// ChangeEvent is the notification envelope forwarded to publish sinks after
// every store mutation. Data carries the resulting entity, nil for removals
// where the entity was already gone, or a full collection map for the
// inventory-complete events.
type ChangeEvent struct {
	Event      string      `json:"event"`
	Kind       EntityKind  `json:"kind"`
	Subject    string      `json:"subject,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	SourceHost string      `json:"source_host,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Timestamp  time.Time   `json:"ts"`
}

// CloudEvent is the CloudEvents 1.0 envelope used by the NATS publish sink.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}
