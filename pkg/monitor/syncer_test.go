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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aztell/callwatch/pkg/ami"
	"github.com/aztell/callwatch/pkg/logger"
	"github.com/aztell/callwatch/pkg/models"
)

const testHost = "pbx-a"

func newTestSyncer(t *testing.T, ctrl *gomock.Controller) (*Syncer, *MockSource, *Store, *captureSink) {
	t.Helper()

	source := NewMockSource(ctrl)
	source.EXPECT().Host().Return(testHost).AnyTimes()

	store := NewStore(nil)
	capture := &captureSink{}
	router := NewRouter(store, capture, nil, logger.NewTestLogger())

	syncer := NewSyncer(source, router, store, nil, logger.NewTestLogger(),
		3*time.Second, 5*time.Second, 2)

	return syncer, source, store, capture
}

func sweepComplete() ami.Event {
	return ami.Event{"Event": "CoreShowChannelsComplete"}
}

func TestSyncerEvictsSessionAfterConsecutiveMisses(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	syncer, _, store, _ := newTestSyncer(t, ctrl)
	ctx := context.Background()

	syncer.handleEvent(ctx, ami.Event{
		"Event":    "Newchannel",
		"Uniqueid": "uid-1",
	})
	require.Contains(t, store.Snapshot().Sessions, "uid-1")

	// First listing without the session: one miss, still present.
	syncer.handleEvent(ctx, sweepComplete())
	assert.Contains(t, store.Snapshot().Sessions, "uid-1")

	// Second consecutive miss crosses the threshold.
	syncer.handleEvent(ctx, sweepComplete())
	assert.NotContains(t, store.Snapshot().Sessions, "uid-1")
}

func TestSyncerEvictionPublishesStaleReason(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	syncer, _, _, capture := newTestSyncer(t, ctrl)
	ctx := context.Background()

	syncer.handleEvent(ctx, ami.Event{"Event": "Newchannel", "Uniqueid": "uid-1"})
	syncer.handleEvent(ctx, sweepComplete())
	syncer.handleEvent(ctx, sweepComplete())

	events := capture.all()
	require.NotEmpty(t, events)

	var end *models.ChangeEvent

	for _, evt := range events {
		if evt.Event == models.EventCallEnd {
			end = evt
		}
	}

	require.NotNil(t, end)
	assert.Equal(t, models.ReasonStale, end.Reason)
	assert.Equal(t, "uid-1", end.Subject)
}

func TestSyncerListingConfirmationResetsMissCounter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	syncer, _, store, _ := newTestSyncer(t, ctrl)
	ctx := context.Background()

	syncer.handleEvent(ctx, ami.Event{"Event": "Newchannel", "Uniqueid": "uid-1"})

	// Miss one cycle, then get re-listed: the counter starts over.
	syncer.handleEvent(ctx, sweepComplete())
	syncer.handleEvent(ctx, ami.Event{
		"Event":    "CoreShowChannel",
		"Uniqueid": "uid-1",
	})
	syncer.handleEvent(ctx, sweepComplete())
	assert.Contains(t, store.Snapshot().Sessions, "uid-1")

	syncer.handleEvent(ctx, sweepComplete())
	assert.Contains(t, store.Snapshot().Sessions, "uid-1")

	syncer.handleEvent(ctx, sweepComplete())
	assert.NotContains(t, store.Snapshot().Sessions, "uid-1")
}

func TestSyncerEvictionScopedToOwnHost(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	syncer, _, store, _ := newTestSyncer(t, ctrl)
	ctx := context.Background()

	store.UpsertSession("other-uid", "pbx-b", models.SessionPatch{Start: true})

	syncer.handleEvent(ctx, sweepComplete())
	syncer.handleEvent(ctx, sweepComplete())
	syncer.handleEvent(ctx, sweepComplete())

	assert.Contains(t, store.Snapshot().Sessions, "other-uid")
}

func TestSyncerConnectClearsPreviousContribution(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := NewMockSource(ctrl)
	source.EXPECT().Host().Return(testHost).AnyTimes()

	clock := NewMockClock(ctrl)
	var settleCh <-chan time.Time = make(chan time.Time)
	clock.EXPECT().After(3 * time.Second).Return(settleCh)

	store := NewStore(nil)
	router := NewRouter(store, &captureSink{}, nil, logger.NewTestLogger())
	syncer := NewSyncer(source, router, store, clock, logger.NewTestLogger(),
		3*time.Second, 5*time.Second, 2)

	store.UpsertEndpoint("101", testHost, models.EndpointPatch{Status: "Reachable"})
	store.UpsertEndpoint("201", "pbx-b", models.EndpointPatch{Status: "Reachable"})

	ch := syncer.handleLifecycle(ami.LifecycleEvent{State: ami.StateConnected})

	require.NotNil(t, ch)
	assert.Equal(t, SyncSyncing, syncer.State())

	snap := store.Snapshot()
	assert.NotContains(t, snap.Endpoints, "101")
	assert.Contains(t, snap.Endpoints, "201")
}

func TestSyncerDisconnectResetsState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	syncer, _, _, _ := newTestSyncer(t, ctrl)

	syncer.missed["uid-1"] = 1
	syncer.confirmed["uid-2"] = struct{}{}

	ch := syncer.handleLifecycle(ami.LifecycleEvent{State: ami.StateDisconnected})

	assert.Nil(t, ch)
	assert.Equal(t, SyncConnecting, syncer.State())
	assert.Empty(t, syncer.missed)
	assert.Empty(t, syncer.confirmed)
}

func TestSyncerInventoryBatchIssuesAllActions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	syncer, source, _, _ := newTestSyncer(t, ctrl)

	var actions []string

	source.EXPECT().
		SendAction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, action string) error {
			actions = append(actions, action)
			return nil
		}).
		Times(len(inventoryActions))

	syncer.issueInventoryBatch(context.Background())

	assert.Equal(t, inventoryActions, actions)
	assert.Contains(t, actions, "CoreShowChannels")
	assert.Contains(t, actions, "SIPpeers")
}

func TestSyncerInventoryBatchToleratesActionFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	syncer, source, _, _ := newTestSyncer(t, ctrl)

	source.EXPECT().
		SendAction(gomock.Any(), gomock.Any()).
		Return(ami.ErrNotConnected).
		Times(len(inventoryActions))

	// Must not panic or stop at the first failure.
	syncer.issueInventoryBatch(context.Background())
}
