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

// Package monitor is the aggregation engine: it normalizes raw upstream
// events into canonical facts, merges them into the entity store, and keeps
// each upstream reconciled through inventory sweeps.
package monitor

//go:generate mockgen -destination=mock_monitor.go -package=monitor github.com/aztell/callwatch/pkg/monitor Source,Clock,Ticker

import (
	"context"
	"time"

	"github.com/aztell/callwatch/pkg/ami"
)

// Source is one upstream telephony manager connection as the syncer sees
// it: lifecycle signals, an ordered event stream, and fire-and-forget
// action issuance. Connect/authenticate/reconnect live behind it.
type Source interface {
	Host() string
	Events() <-chan ami.Event
	Lifecycle() <-chan ami.LifecycleEvent
	SendAction(ctx context.Context, action string) error
}

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
	After(d time.Duration) <-chan time.Time
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}
