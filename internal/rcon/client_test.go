package rcon

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	replies map[string]string
	err     error
	got     []string
	closed  bool
}

func (s *fakeSession) Execute(cmd string) (string, error) {
	s.got = append(s.got, cmd)
	if s.err != nil {
		return "", s.err
	}
	return s.replies[cmd], nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func TestSendCommand_Reply(t *testing.T) {
	sess := &fakeSession{replies: map[string]string{"status": "hostname: test"}}
	var gotAddr, gotPw string
	var gotTimeout time.Duration
	c := Connect("127.0.0.1", "27015", "secret",
		WithTimeout(2*time.Second),
		WithDialer(func(addr, pw string, timeout time.Duration) (Session, error) {
			gotAddr, gotPw, gotTimeout = addr, pw, timeout
			return sess, nil
		}))

	reply, err := c.SendCommand(context.Background(), "status")
	require.NoError(t, err)
	assert.Equal(t, "hostname: test", reply)
	assert.Equal(t, "127.0.0.1:27015", gotAddr)
	assert.Equal(t, "secret", gotPw)
	assert.Equal(t, 2*time.Second, gotTimeout)
	assert.Equal(t, []string{"status"}, sess.got)
	assert.True(t, sess.closed)
}

func TestSendCommand_EmptyOnlyAuthenticates(t *testing.T) {
	sess := &fakeSession{}
	c := Connect("127.0.0.1", "27015", "pw", WithDialer(func(string, string, time.Duration) (Session, error) {
		return sess, nil
	}))
	reply, err := c.SendCommand(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, reply)
	assert.Empty(t, sess.got)
	assert.True(t, sess.closed)
}

func TestSendCommand_DialFailureIsUnreachable(t *testing.T) {
	c := Connect("127.0.0.1", "27015", "pw", WithDialer(func(string, string, time.Duration) (Session, error) {
		return nil, errors.New("connection refused")
	}))
	_, err := c.SendCommand(context.Background(), "status")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreachable))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSendCommand_ExecuteFailureIsUnreachable(t *testing.T) {
	sess := &fakeSession{err: errors.New("i/o timeout")}
	c := Connect("127.0.0.1", "27015", "pw", WithDialer(func(string, string, time.Duration) (Session, error) {
		return sess, nil
	}))
	_, err := c.SendCommand(context.Background(), "status")
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.True(t, sess.closed)
}

func TestSendCommand_ContextDeadlineShortensTimeout(t *testing.T) {
	var gotTimeout time.Duration
	c := Connect("127.0.0.1", "27015", "pw", WithTimeout(time.Minute), WithDialer(func(_ string, _ string, d time.Duration) (Session, error) {
		gotTimeout = d
		return &fakeSession{}, nil
	}))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := c.SendCommand(ctx, "")
	require.NoError(t, err)
	assert.LessOrEqual(t, gotTimeout, time.Second)
}

func TestSendCommand_CanceledContext(t *testing.T) {
	c := Connect("127.0.0.1", "27015", "pw", WithDialer(func(string, string, time.Duration) (Session, error) {
		t.Fatal("dial must not happen with a canceled context")
		return nil, nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SendCommand(ctx, "status")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendCommand_RealDialClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())

	c := Connect("127.0.0.1", port, "pw", WithTimeout(500*time.Millisecond))
	_, err = c.SendCommand(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestRandomPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pw, err := RandomPassword(12)
		require.NoError(t, err)
		require.Len(t, pw, 12)
		for _, r := range pw {
			require.True(t, strings.ContainsRune(passwordAlphabet, r), "unexpected rune %q", r)
		}
		seen[pw] = true
	}
	assert.Greater(t, len(seen), 1)

	_, err := RandomPassword(0)
	assert.Error(t, err)
}

func TestFirstIPv4(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("127.0.0.1")},
		&net.IPNet{IP: net.ParseIP("fe80::1")},
		&net.IPAddr{IP: net.ParseIP("192.168.1.20")},
	}
	assert.Equal(t, "192.168.1.20", firstIPv4(addrs))
	assert.Equal(t, "", firstIPv4(addrs[:2]))
}

func TestResolveHost(t *testing.T) {
	h, err := resolveHost(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", h)

	h, err = resolveHost(context.Background(), "localhost")
	require.NoError(t, err)
	assert.NotEmpty(t, h)

	_, err = resolveHost(context.Background(), "")
	assert.Error(t, err)
}
