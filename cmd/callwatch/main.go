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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/aztell/callwatch/pkg/ami"
	"github.com/aztell/callwatch/pkg/api"
	"github.com/aztell/callwatch/pkg/config"
	"github.com/aztell/callwatch/pkg/lifecycle"
	"github.com/aztell/callwatch/pkg/monitor"
	"github.com/aztell/callwatch/pkg/sink"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/callwatch/callwatch.json", "Path to callwatch config file")
	flag.Parse()

	ctx := context.Background()

	cfgLoader := config.NewConfig(nil)

	var cfg monitor.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	monitorLogger, err := lifecycle.CreateComponentLogger("monitor", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store := monitor.NewStore(nil)

	wsLogger, err := lifecycle.CreateComponentLogger("ws", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	hub := sink.NewHub(store.Snapshot, wsLogger)

	sinks := []sink.Sink{hub}

	if cfg.NATS != nil && cfg.NATS.URL != "" {
		natsLogger, lerr := lifecycle.CreateComponentLogger("nats", cfg.Logging)
		if lerr != nil {
			return fmt.Errorf("failed to initialize logger: %w", lerr)
		}

		publisher, perr := sink.NewNATSPublisher(ctx, cfg.NATS, natsLogger)
		if perr != nil {
			return fmt.Errorf("failed to initialize NATS sink: %w", perr)
		}
		defer publisher.Close()

		sinks = append(sinks, publisher)
	}

	router := monitor.NewRouter(store, sink.NewMultiSink(sinks...), nil, monitorLogger)

	services := make([]lifecycle.Service, 0, 2*len(cfg.Hosts)+1)
	syncers := make(map[string]*monitor.Syncer, len(cfg.Hosts))

	for _, host := range cfg.Hosts {
		amiLogger, lerr := lifecycle.CreateComponentLogger("ami", cfg.Logging)
		if lerr != nil {
			return fmt.Errorf("failed to initialize logger: %w", lerr)
		}

		client := ami.NewClient(host, amiLogger)
		syncer := monitor.NewSyncer(client, router, store, nil, monitorLogger,
			time.Duration(cfg.SettleDelay), time.Duration(cfg.SweepInterval), cfg.StaleSweeps)

		syncers[host.Host] = syncer
		services = append(services, client, syncer)
	}

	hostStatuses := func() []api.HostStatus {
		statuses := make([]api.HostStatus, 0, len(cfg.Hosts))

		for _, host := range cfg.Hosts {
			statuses = append(statuses, api.HostStatus{
				Host:  host.Host,
				State: string(syncers[host.Host].State()),
			})
		}

		return statuses
	}

	apiLogger, err := lifecycle.CreateComponentLogger("api", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	server := api.NewServer(cfg.ListenAddr, cfg.PublicDir, store, hub, hostStatuses, apiLogger)
	services = append(services, server)

	return lifecycle.Run(ctx, monitorLogger, services...)
}
