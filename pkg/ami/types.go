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

// Package ami implements a client for the Asterisk Manager Interface: TCP
// connect, login, keep-alive, automatic reconnect, an event stream of raw
// field mappings and fire-and-forget action issuance.
package ami

import (
	"net"
	"strconv"

	"github.com/aztell/callwatch/pkg/models"
)

// Event is a raw AMI message: a flat mapping of field name to value. The
// same logical fact can arrive under different field names depending on the
// signaling stack, so consumers resolve fields through alias lists.
type Event map[string]string

// Name returns the AMI event name, empty for action responses.
func (e Event) Name() string { return e["Event"] }

// Get returns the first non-empty value among the given field names.
func (e Event) Get(names ...string) string {
	for _, name := range names {
		if v := e[name]; v != "" {
			return v
		}
	}

	return ""
}

// State is the connection lifecycle state surfaced to consumers.
type State string

const (
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// LifecycleEvent signals a connection state change. Err is set on
// disconnects caused by a read or protocol error.
type LifecycleEvent struct {
	State State
	Err   error
}

const defaultPort = 5038

// HostConfig identifies one AMI host and its credentials.
type HostConfig struct {
	Host      string          `json:"host"`
	Port      int             `json:"port"`
	Username  string          `json:"username"`
	Password  string          `json:"password"`
	KeepAlive models.Duration `json:"keep_alive,omitempty"`
}

// Addr returns the host:port dial address, applying the default AMI port.
func (h *HostConfig) Addr() string {
	port := h.Port
	if port == 0 {
		port = defaultPort
	}

	return net.JoinHostPort(h.Host, strconv.Itoa(port))
}
