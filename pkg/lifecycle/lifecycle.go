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

// Package lifecycle runs long-lived services under a shared context with
// signal-driven shutdown.
package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aztell/callwatch/pkg/logger"
)

const stopTimeout = 10 * time.Second

// Service is a long-running component. Start blocks until the context is
// canceled or the service fails; Stop releases resources that context
// cancellation alone cannot (open sockets, listeners).
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// CreateComponentLogger creates a logger for a specific component.
func CreateComponentLogger(component string, config *logger.Config) (logger.Logger, error) {
	return logger.NewComponent(component, config)
}

// Run starts all services and blocks until an interrupt/terminate signal or
// the first service failure, then stops them in reverse registration order.
func Run(ctx context.Context, log logger.Logger, services ...Service) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	for _, svc := range services {
		g.Go(func() error {
			if err := svc.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		})
	}

	<-gctx.Done()
	log.Info().Msg("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(stopCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping service")
		}
	}

	return g.Wait()
}
