// Package rcon sends administrative commands to the game server over Source RCON.
package rcon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorcon/rcon"
)

// ErrUnreachable is wrapped by every failure to reach or authenticate with the
// server. An empty reply with a nil error is a successful exchange.
var ErrUnreachable = errors.New("rcon: server unreachable")

// DefaultTimeout bounds dialing and each read/write of a session.
const DefaultTimeout = 5 * time.Second

// Client is the remote-control capability used by the supervisor and the console.
type Client interface {
	SendCommand(ctx context.Context, text string) (string, error)
}

// Session is one authenticated RCON connection.
type Session interface {
	Execute(command string) (string, error)
	Close() error
}

// DialFunc opens an authenticated session.
type DialFunc func(address, password string, timeout time.Duration) (Session, error)

// Option configures a SourceClient.
type Option func(*SourceClient)

// WithTimeout sets the dial and I/O deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *SourceClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDialer replaces the network dialer.
func WithDialer(d DialFunc) Option {
	return func(c *SourceClient) {
		if d != nil {
			c.dial = d
		}
	}
}

// SourceClient opens a fresh session per command, so a restarted server is
// picked up without reconnect logic.
type SourceClient struct {
	host     string
	port     string
	password string
	timeout  time.Duration
	dial     DialFunc
}

// Connect returns a client for host:port. No network traffic happens until the
// first SendCommand.
func Connect(host, port, password string, opts ...Option) *SourceClient {
	c := &SourceClient{
		host:     host,
		port:     port,
		password: password,
		timeout:  DefaultTimeout,
		dial:     dialSource,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func dialSource(address, password string, timeout time.Duration) (Session, error) {
	return rcon.Dial(address, password, rcon.SetDialTimeout(timeout), rcon.SetDeadline(timeout))
}

// Address is the resolved host:port the client dials.
func (c *SourceClient) Address(ctx context.Context) (string, error) {
	host, err := resolveHost(ctx, c.host)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, c.port), nil
}

// SendCommand runs text on the server and returns its reply. An empty command
// only opens and authenticates a session, which is enough to prove liveness.
func (c *SourceClient) SendCommand(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return "", fmt.Errorf("%w: deadline exceeded", ErrUnreachable)
	}

	addr, err := c.Address(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	sess, err := c.dial(addr, c.password, timeout)
	if err != nil {
		return "", fmt.Errorf("%w: dial %s: %v", ErrUnreachable, addr, err)
	}
	defer func() { _ = sess.Close() }()

	if text == "" {
		return "", nil
	}
	reply, err := sess.Execute(text)
	if err != nil {
		return "", fmt.Errorf("%w: execute: %v", ErrUnreachable, err)
	}
	return reply, nil
}
