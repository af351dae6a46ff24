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
	"time"

	"github.com/aztell/callwatch/pkg/ami"
	"github.com/aztell/callwatch/pkg/logger"
	"github.com/aztell/callwatch/pkg/models"
	"github.com/aztell/callwatch/pkg/sink"
)

const (
	defaultListenAddr    = ":5120"
	defaultSweepInterval = 5 * time.Second
	defaultSettleDelay   = 3 * time.Second
	defaultStaleSweeps   = 2
)

// inventoryActions is the listing batch issued on settle and on every
// sweep tick. Both signaling stacks are queried; hosts running only one
// reject the other's actions, which the syncer tolerates.
var inventoryActions = []string{
	"PJSIPShowEndpoints",
	"SIPpeers",
	"PJSIPShowRegistrationsOutbound",
	"CoreShowChannels",
	"IAXpeerlist",
}

// Config is the service configuration for the monitor.
type Config struct {
	ListenAddr    string           `json:"listen_addr,omitempty"`
	PublicDir     string           `json:"public_dir,omitempty"`
	Hosts         []ami.HostConfig `json:"hosts"`
	SweepInterval models.Duration  `json:"sweep_interval,omitempty"`
	SettleDelay   models.Duration  `json:"settle_delay,omitempty"`
	StaleSweeps   int              `json:"stale_sweeps,omitempty"`
	NATS          *sink.NATSConfig `json:"nats,omitempty"`
	Logging       *logger.Config   `json:"logging,omitempty"`
}

// Validate checks required fields and applies defaults in place.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return ErrNoHosts
	}

	for i := range c.Hosts {
		if c.Hosts[i].Host == "" {
			return ErrHostMissingAddress
		}
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.SweepInterval == 0 {
		c.SweepInterval = models.Duration(defaultSweepInterval)
	}

	if c.SettleDelay == 0 {
		c.SettleDelay = models.Duration(defaultSettleDelay)
	}

	if c.StaleSweeps <= 0 {
		c.StaleSweeps = defaultStaleSweeps
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	return nil
}
