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

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/aztell/callwatch/pkg/logger"
	"github.com/aztell/callwatch/pkg/models"
)

const (
	defaultStream        = "callwatch"
	defaultSubjectPrefix = "callwatch.events"
	cloudEventSource     = "aztell/callwatch"
	cloudEventTypePrefix = "com.aztell.callwatch."
)

// NATSConfig configures the optional JetStream publish sink.
type NATSConfig struct {
	URL           string `json:"url"`
	Stream        string `json:"stream,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty"`
}

// NATSPublisher implements Sink by publishing CloudEvents to a NATS
// JetStream stream, one subject per entity kind.
type NATSPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
	logger  logger.Logger
}

// NewNATSPublisher connects to NATS and ensures the stream exists.
func NewNATSPublisher(ctx context.Context, config *NATSConfig, log logger.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(config.URL,
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamName := config.Stream
	if streamName == "" {
		streamName = defaultStream
	}

	subject := config.SubjectPrefix
	if subject == "" {
		subject = defaultSubjectPrefix
	}

	if _, err = js.Stream(ctx, streamName); err != nil {
		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject + ".>"},
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create or get stream %s: %w", streamName, err)
		}

		log.Info().Str("stream", streamName).Msg("Created NATS JetStream stream")
	}

	return &NATSPublisher{nc: nc, js: js, subject: subject, logger: log}, nil
}

// Publish implements Sink.
func (p *NATSPublisher) Publish(ctx context.Context, event *models.ChangeEvent) error {
	kind := string(event.Kind)
	if kind == "" {
		kind = "misc"
	}

	return p.publish(ctx, p.subject+"."+kind, cloudEventTypePrefix+event.Event, event)
}

// PublishSnapshot implements Sink.
func (p *NATSPublisher) PublishSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	return p.publish(ctx, p.subject+".snapshot", cloudEventTypePrefix+models.EventSnapshot, snapshot)
}

// Close drains the NATS connection.
func (p *NATSPublisher) Close() {
	p.nc.Close()
}

func (p *NATSPublisher) publish(ctx context.Context, subject, eventType string, data interface{}) error {
	now := time.Now().UTC()

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          cloudEventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &now,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	ack, err := p.js.Publish(ctx, subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	p.logger.Debug().
		Str("subject", subject).
		Uint64("seq", ack.Sequence).
		Msg("Published change event")

	return nil
}
