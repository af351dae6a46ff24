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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aztell/callwatch/pkg/models"
)

func TestStoreUpsertEndpointMerges(t *testing.T) {
	store := NewStore(nil)

	ep := store.UpsertEndpoint("101", "pbx-a", models.EndpointPatch{Status: "Reachable"})
	require.NotNil(t, ep)
	assert.Equal(t, "Reachable", ep.Status)
	assert.Empty(t, ep.Technology)
	assert.Equal(t, models.KindEndpoint, ep.Kind)

	// A later partial patch must not clear fields it does not carry.
	ep = store.UpsertEndpoint("101", "pbx-a", models.EndpointPatch{Technology: "SIP"})
	assert.Equal(t, "Reachable", ep.Status)
	assert.Equal(t, "SIP", ep.Technology)

	ep = store.UpsertEndpoint("101", "pbx-a", models.EndpointPatch{Status: "Unreachable"})
	assert.Equal(t, "Unreachable", ep.Status)
	assert.Equal(t, "SIP", ep.Technology)
}

func TestStoreUpsertIsIdempotent(t *testing.T) {
	store := NewStore(nil)

	patch := models.EndpointPatch{Status: "Reachable", Technology: "SIP"}
	first := store.UpsertEndpoint("101", "pbx-a", patch)
	second := store.UpsertEndpoint("101", "pbx-a", patch)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Technology, second.Technology)
	assert.Len(t, store.Snapshot().Endpoints, 1)
}

func TestStoreLastWriteWinsAcrossHosts(t *testing.T) {
	store := NewStore(nil)

	store.UpsertEndpoint("101", "pbx-a", models.EndpointPatch{Status: "Reachable"})
	ep := store.UpsertEndpoint("101", "pbx-b", models.EndpointPatch{Status: "Unreachable"})

	assert.Equal(t, "pbx-b", ep.SourceHost)
	assert.Equal(t, "Unreachable", ep.Status)
	assert.Len(t, store.Snapshot().Endpoints, 1)
}

func TestStoreSessionStartStampedOnce(t *testing.T) {
	store := NewStore(nil)

	sess := store.UpsertSession("uid-1", "pbx-a", models.SessionPatch{
		Originator: "101",
		State:      "Ring",
		Start:      true,
	})
	require.False(t, sess.StartedAt.IsZero())

	started := sess.StartedAt

	// Inventory rows re-assert Start; the original timestamp must survive.
	sess = store.UpsertSession("uid-1", "pbx-a", models.SessionPatch{State: "Up", Start: true})
	assert.Equal(t, started, sess.StartedAt)
	assert.Equal(t, "Up", sess.State)
	assert.Equal(t, "101", sess.Originator)
}

func TestStoreSessionBridgedPointer(t *testing.T) {
	store := NewStore(nil)

	bridged := true
	sess := store.UpsertSession("uid-1", "pbx-a", models.SessionPatch{Bridged: &bridged})
	assert.True(t, sess.Bridged)

	// A patch without Bridged leaves the flag alone.
	sess = store.UpsertSession("uid-1", "pbx-a", models.SessionPatch{State: "Up"})
	assert.True(t, sess.Bridged)

	bridged = false
	sess = store.UpsertSession("uid-1", "pbx-a", models.SessionPatch{Bridged: &bridged})
	assert.False(t, sess.Bridged)
}

func TestStoreRemoveSession(t *testing.T) {
	store := NewStore(nil)

	store.UpsertSession("uid-1", "pbx-a", models.SessionPatch{Start: true})

	removed := store.RemoveSession("uid-1")
	require.NotNil(t, removed)
	require.NotNil(t, removed.EndedAt)
	assert.Empty(t, store.Snapshot().Sessions)

	// Duplicate removal is a no-op.
	assert.Nil(t, store.RemoveSession("uid-1"))
}

func TestStoreClearSourceIsolation(t *testing.T) {
	store := NewStore(nil)

	store.UpsertEndpoint("101", "pbx-a", models.EndpointPatch{Status: "Reachable"})
	store.UpsertTrunk("gw1", "pbx-a", models.TrunkPatch{Status: "Registered"})
	store.UpsertSession("uid-1", "pbx-a", models.SessionPatch{Start: true})
	store.UpsertEndpoint("201", "pbx-b", models.EndpointPatch{Status: "Reachable"})
	store.UpsertSession("uid-2", "pbx-b", models.SessionPatch{Start: true})

	removed := store.ClearSource("pbx-a")
	assert.Equal(t, 3, removed)

	snap := store.Snapshot()
	assert.Contains(t, snap.Endpoints, "201")
	assert.NotContains(t, snap.Endpoints, "101")
	assert.Empty(t, snap.Trunks)
	assert.Contains(t, snap.Sessions, "uid-2")
	assert.NotContains(t, snap.Sessions, "uid-1")
}

func TestStoreSessionIDsBySource(t *testing.T) {
	store := NewStore(nil)

	store.UpsertSession("uid-1", "pbx-a", models.SessionPatch{Start: true})
	store.UpsertSession("uid-2", "pbx-a", models.SessionPatch{Start: true})
	store.UpsertSession("uid-3", "pbx-b", models.SessionPatch{Start: true})

	ids := store.SessionIDsBySource("pbx-a")
	assert.ElementsMatch(t, []string{"uid-1", "uid-2"}, ids)
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	store := NewStore(nil)

	store.UpsertEndpoint("101", "pbx-a", models.EndpointPatch{Status: "Reachable"})

	snap := store.Snapshot()
	snap.Endpoints["101"].Status = "mutated"

	fresh := store.Snapshot()
	assert.Equal(t, "Reachable", fresh.Endpoints["101"].Status)
}
