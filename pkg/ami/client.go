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

package ami

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/aztell/callwatch/pkg/logger"
)

const (
	dialTimeout      = 10 * time.Second
	defaultKeepAlive = 30 * time.Second
	eventBuffer      = 256
	lifecycleBuffer  = 8
)

// Client maintains one AMI connection. It reconnects with exponential
// backoff on drops and surfaces connect/disconnect transitions on the
// Lifecycle channel so the reconciliation layer can resync.
type Client struct {
	config    HostConfig
	logger    logger.Logger
	events    chan Event
	lifecycle chan LifecycleEvent

	mu   sync.Mutex
	conn net.Conn
	w    *bufio.Writer
}

// session holds the per-connection I/O state.
type session struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

// NewClient creates a client for one AMI host. Call Start to connect.
func NewClient(config HostConfig, log logger.Logger) *Client {
	return &Client{
		config:    config,
		logger:    log,
		events:    make(chan Event, eventBuffer),
		lifecycle: make(chan LifecycleEvent, lifecycleBuffer),
	}
}

// Host returns the configured host identity, used as the source tag on every
// entity this connection contributes.
func (c *Client) Host() string { return c.config.Host }

// Events returns the stream of raw AMI events, in upstream arrival order.
func (c *Client) Events() <-chan Event { return c.events }

// Lifecycle returns the stream of connection state transitions.
func (c *Client) Lifecycle() <-chan LifecycleEvent { return c.lifecycle }

// Start implements the lifecycle.Service interface. It blocks until the
// context is canceled, reconnecting with backoff whenever the connection
// drops.
func (c *Client) Start(ctx context.Context) error {
	for {
		sess, err := backoff.Retry(ctx, func() (*session, error) {
			return c.connect(ctx)
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithNotify(func(err error, next time.Duration) {
				c.logger.Warn().
					Err(err).
					Str("host", c.config.Host).
					Dur("retry_in", next).
					Msg("AMI connect failed")
			}))
		if err != nil {
			return err
		}

		c.setSession(sess)
		c.signal(ctx, LifecycleEvent{State: StateConnected})
		c.logger.Info().Str("addr", c.config.Addr()).Msg("Connected to AMI host")

		err = c.pump(ctx, sess)

		c.setSession(nil)
		_ = sess.conn.Close()
		c.signal(ctx, LifecycleEvent{State: StateDisconnected, Err: err})

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			c.logger.Warn().
				Err(err).
				Str("host", c.config.Host).
				Msg("AMI connection lost, reconnecting")
		}
	}
}

// Stop implements the lifecycle.Service interface. Closing the connection
// unblocks the read loop; Start then returns via its canceled context.
func (c *Client) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}

// SendAction issues a fire-and-forget action by name. The response arrives
// asynchronously on the ordinary event stream.
func (c *Client) SendAction(_ context.Context, action string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.w == nil {
		return ErrNotConnected
	}

	return writeAction(c.w, []string{"Action", "ActionID"}, map[string]string{
		"Action":   action,
		"ActionID": uuid.New().String(),
	})
}

func (c *Client) connect(ctx context.Context) (*session, error) {
	d := net.Dialer{Timeout: dialTimeout}

	conn, err := d.DialContext(ctx, "tcp", c.config.Addr())
	if err != nil {
		return nil, err
	}

	sess := &session{conn: conn, r: bufio.NewReader(conn), w: bufio.NewWriter(conn)}

	if err := c.login(sess); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return sess, nil
}

func (c *Client) login(sess *session) error {
	_ = sess.conn.SetDeadline(time.Now().Add(dialTimeout))
	defer func() { _ = sess.conn.SetDeadline(time.Time{}) }()

	banner, err := sess.r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading AMI banner: %w", err)
	}

	if strings.TrimSpace(banner) == "" {
		return errEmptyBanner
	}

	c.logger.Debug().Str("banner", strings.TrimSpace(banner)).Msg("AMI banner received")

	err = writeAction(sess.w, []string{"Action", "ActionID", "Username", "Secret"}, map[string]string{
		"Action":   "Login",
		"ActionID": uuid.New().String(),
		"Username": c.config.Username,
		"Secret":   c.config.Password,
	})
	if err != nil {
		return fmt.Errorf("sending login: %w", err)
	}

	resp, err := readBlock(sess.r)
	if err != nil {
		return fmt.Errorf("reading login response: %w", err)
	}

	if resp["Response"] != "Success" {
		return fmt.Errorf("%w: %s", errLoginFailed, resp.Get("Message", "Response"))
	}

	return nil
}

// pump forwards inbound events and sends keep-alive pings until the
// connection fails or the context is canceled.
func (c *Client) pump(ctx context.Context, sess *session) error {
	keepAlive := time.Duration(c.config.KeepAlive)
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	blocks := make(chan Event)
	errs := make(chan error, 1)

	go func() {
		for {
			evt, err := readBlock(sess.r)
			if err != nil {
				errs <- err
				return
			}

			select {
			case blocks <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		case evt := <-blocks:
			if evt.Name() == "" {
				// Action responses carry no Event field; nothing downstream
				// keys on them.
				continue
			}

			select {
			case c.events <- evt:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ticker.C:
			if err := c.SendAction(ctx, "Ping"); err != nil {
				return fmt.Errorf("keep-alive ping: %w", err)
			}
		}
	}
}

func (c *Client) setSession(sess *session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sess == nil {
		c.conn, c.w = nil, nil
		return
	}

	c.conn, c.w = sess.conn, sess.w
}

func (c *Client) signal(ctx context.Context, evt LifecycleEvent) {
	select {
	case c.lifecycle <- evt:
	case <-ctx.Done():
	}
}
