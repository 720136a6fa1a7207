package sockconf

import (
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "socklab/internal/errors"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Equal(t, time.Duration(0), c.Timeout)
	require.Equal(t, 4096, c.SendBuffer)
	require.Equal(t, 4096, c.RecvBuffer)
	require.True(t, c.Blocking)
	require.NoError(t, c.Validate())
}

func TestWithBuffers(t *testing.T) {
	tests := []struct {
		name       string
		send, recv int
		wantErr    bool
	}{
		{"lower bound", 1024, 1024, false},
		{"upper bound", 65536, 65536, false},
		{"send too small", 512, 4096, true},
		{"recv too large", 4096, 70000, true},
		{"both bad", 512, 70000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := Default()
			got, err := orig.WithBuffers(tt.send, tt.recv)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errs.IsValidation(err))
				require.Equal(t, orig, got, "rejected input must not change the config")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.send, got.SendBuffer)
			require.Equal(t, tt.recv, got.RecvBuffer)
		})
	}
}

func TestWithTimeout(t *testing.T) {
	c := Default().WithBlocking(false)

	got, err := c.WithTimeout(0)
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), got.Timeout)
	require.True(t, got.Blocking, "zero timeout selects blocking mode")

	got, err = Default().WithTimeout(2500 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 2500*time.Millisecond, got.Timeout)

	_, err = Default().WithTimeout(-time.Second)
	require.Error(t, err)
}

func TestSeconds(t *testing.T) {
	tests := []struct {
		secs float64
		want time.Duration
		ok   bool
	}{
		{0, 0, true},
		{2.5, 2500 * time.Millisecond, true},
		{1e-9, time.Nanosecond, true},
		{-1, 0, false},
		{1e-12, 0, false},
		{1e10, 0, false},
		{maxTimeoutSeconds, 0, false},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
	}
	for _, tt := range tests {
		got, err := Seconds(tt.secs)
		if !tt.ok {
			require.True(t, errs.IsValidation(err), "Seconds(%g) = %v, %v", tt.secs, got, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}

func TestDeadline(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, Default().Deadline(now).IsZero(), "blocking without timeout has no deadline")

	c, _ := Default().WithTimeout(2 * time.Second)
	require.Equal(t, now.Add(2*time.Second), c.Deadline(now))

	nb := c.WithBlocking(false)
	require.Equal(t, now.Add(NonBlockingWindow), nb.Deadline(now), "blocking flag wins over timeout")
}

func TestStrings(t *testing.T) {
	require.Equal(t, "None (Blocking)", Default().TimeoutString())
	c, _ := Default().WithTimeout(2500 * time.Millisecond)
	require.Equal(t, "2.5s", c.TimeoutString())
	require.Equal(t, "Non-blocking", c.WithBlocking(false).ModeString())
	require.Contains(t, c.String(), "send=4096")
}

func TestApply_TCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	cfg, err := Default().WithBuffers(8192, 16384)
	require.NoError(t, err)
	require.NoError(t, cfg.Apply(conn.(*net.TCPConn)))

	send, recv, err := Effective(conn.(*net.TCPConn))
	require.NoError(t, err)
	// Kernels may round up or double the requested value.
	require.GreaterOrEqual(t, send, 1024)
	require.GreaterOrEqual(t, recv, 1024)

	select {
	case c := <-accepted:
		require.NoError(t, cfg.Apply(c.(*net.TCPConn)))
		c.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("accept timed out")
	}
}

func TestControl_DialWarnsButConnects(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var warnings []error
	d := net.Dialer{Control: Default().Control(true, func(err error) { warnings = append(warnings, err) })}
	conn, err := d.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	conn.Close()
	for _, w := range warnings {
		require.True(t, errs.IsWarning(w))
	}
}
