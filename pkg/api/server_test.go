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

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aztell/callwatch/pkg/logger"
	"github.com/aztell/callwatch/pkg/models"
	"github.com/aztell/callwatch/pkg/monitor"
	"github.com/aztell/callwatch/pkg/sink"
)

func newTestServer() (*Server, *monitor.Store) {
	store := monitor.NewStore(nil)
	hub := sink.NewHub(store.Snapshot, logger.NewTestLogger())

	hosts := func() []HostStatus {
		return []HostStatus{{Host: "10.0.0.1", State: "steady"}}
	}

	return NewServer(":0", "", store, hub, hosts, logger.NewTestLogger()), store
}

func TestStatusEndpoint(t *testing.T) {
	server, store := newTestServer()

	store.UpsertEndpoint("101", "10.0.0.1", models.EndpointPatch{Status: "Reachable"})
	store.UpsertTrunk("gw1", "10.0.0.1", models.TrunkPatch{Status: "Registered"})

	rec := httptest.NewRecorder()
	server.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status struct {
		Status      string           `json:"status"`
		Hosts       []HostStatus     `json:"ami_hosts"`
		Counts      map[string]int   `json:"counts"`
		Subscribers int              `json:"subscribers"`
		Snapshot    *models.Snapshot `json:"snapshot"`
	}

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	require.Len(t, status.Hosts, 1)
	assert.Equal(t, "steady", status.Hosts[0].State)
	assert.Equal(t, 1, status.Counts["endpoints"])
	assert.Equal(t, 1, status.Counts["trunks"])
	assert.Zero(t, status.Counts["sessions"])
	assert.Zero(t, status.Subscribers)
	require.NotNil(t, status.Snapshot)
	assert.Contains(t, status.Snapshot.Endpoints, "101")
}

func TestStatusEndpointRejectsPost(t *testing.T) {
	server, _ := newTestServer()

	rec := httptest.NewRecorder()
	server.handleStatus(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSnapshotEndpoint(t *testing.T) {
	server, store := newTestServer()

	store.UpsertSession("uid-1", "10.0.0.1", models.SessionPatch{Originator: "101", Start: true})

	rec := httptest.NewRecorder()
	server.handleSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Contains(t, snap.Sessions, "uid-1")
	assert.Equal(t, "101", snap.Sessions["uid-1"].Originator)
}

func TestCommonMiddlewareCORSPreflight(t *testing.T) {
	handler := CommonMiddleware(logger.NewTestLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
