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

// Package sink delivers change notifications and snapshots to observers.
package sink

//go:generate mockgen -destination=mock_sink.go -package=sink github.com/aztell/callwatch/pkg/sink Sink

import (
	"context"
	"errors"

	"github.com/aztell/callwatch/pkg/models"
)

// Sink is the fan-out target the event router publishes to.
type Sink interface {
	Publish(ctx context.Context, event *models.ChangeEvent) error
	PublishSnapshot(ctx context.Context, snapshot *models.Snapshot) error
}

// MultiSink fans out to several sinks. A failing sink does not stop
// delivery to the others.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a MultiSink over the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Publish implements Sink.
func (m *MultiSink) Publish(ctx context.Context, event *models.ChangeEvent) error {
	var errs []error

	for _, s := range m.sinks {
		if err := s.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// PublishSnapshot implements Sink.
func (m *MultiSink) PublishSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	var errs []error

	for _, s := range m.sinks {
		if err := s.PublishSnapshot(ctx, snapshot); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
