package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "socklab/internal/errors"
	"socklab/internal/metrics"
	"socklab/internal/sockconf"
	"socklab/util"
)

// pair returns a connected server/client session pair on loopback.
func pair(t *testing.T, cfg sockconf.Config, m *metrics.Collector) (server, client *Session) {
	t.Helper()
	port, err := util.FindFreePort()
	require.NoError(t, err)

	opts := Options{Metrics: m}
	ln, err := Listen("127.0.0.1", port, 1, cfg, opts)
	require.NoError(t, err)

	accepted := make(chan *Session, 1)
	acceptErr := make(chan error, 1)
	go func() {
		s, err := Accept(context.Background(), ln, cfg, opts)
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- s
	}()

	client, err = Connect(context.Background(), "127.0.0.1", port, cfg, opts)
	require.NoError(t, err)

	select {
	case server = <-accepted:
	case err := <-acceptErr:
		t.Fatalf("accept: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("accept timed out")
	}
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, client
}

func TestListenAndConnect_PeersMatch(t *testing.T) {
	server, client := pair(t, sockconf.Default(), nil)

	require.Equal(t, server.RemoteAddr().String(), client.LocalAddr().String())
	require.Equal(t, client.RemoteAddr().String(), server.LocalAddr().String())
}

func TestListenAndAcceptOne(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)

	done := make(chan *Session, 1)
	go func() {
		s, err := ListenAndAcceptOne(context.Background(), "127.0.0.1", port, 5, sockconf.Default(), Options{})
		if err == nil {
			done <- s
		}
		close(done)
	}()

	var client *Session
	require.Eventually(t, func() bool {
		client, err = Connect(context.Background(), "127.0.0.1", port, sockconf.Default(), Options{})
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
	defer client.Close()

	server, ok := <-done
	require.True(t, ok, "server should accept")
	defer server.Close()

	require.NoError(t, client.Send([]byte("ping")))
	got, err := server.Receive(64)
	require.NoError(t, err)
	require.Equal(t, "ping", string(got))
}

func TestSendReceive(t *testing.T) {
	m := metrics.New()
	server, client := pair(t, sockconf.Default(), m)

	payload := make([]byte, 200_000) // larger than any socket buffer
	for i := range payload {
		payload[i] = byte(i)
	}

	sendErr := make(chan error, 1)
	go func() { sendErr <- client.Send(payload) }()

	var got []byte
	for len(got) < len(payload) {
		chunk, err := server.Receive(4096)
		require.NoError(t, err)
		require.NotEmpty(t, chunk)
		require.LessOrEqual(t, len(chunk), 4096)
		got = append(got, chunk...)
	}
	require.NoError(t, <-sendErr)
	require.Equal(t, payload, got)

	snap := m.Snapshot()
	require.Equal(t, int64(len(payload)), snap.BytesOut)
	require.Equal(t, int64(len(payload)), snap.BytesIn)
	require.Equal(t, int64(2), snap.ConnectionsTotal)
}

func TestReceive_OrderlyShutdown(t *testing.T) {
	server, client := pair(t, sockconf.Default(), nil)

	require.NoError(t, client.Send([]byte("bye")))
	require.NoError(t, client.CloseWrite())

	got, err := server.Receive(1024)
	require.NoError(t, err)
	require.Equal(t, "bye", string(got))

	got, err = server.Receive(1024)
	require.NoError(t, err, "end of stream is not an error")
	require.Empty(t, got)
}

func TestReceive_Timeout(t *testing.T) {
	cfg, err := sockconf.Default().WithTimeout(100 * time.Millisecond)
	require.NoError(t, err)
	server, _ := pair(t, cfg, nil)

	_, err = server.Receive(16)
	require.Error(t, err)
	require.True(t, errs.IsReceive(err))
	require.True(t, errs.IsTimeout(err))
}

func TestReceive_NonBlocking(t *testing.T) {
	server, _ := pair(t, sockconf.Default().WithBlocking(false), nil)

	start := time.Now()
	_, err := server.Receive(16)
	require.ErrorIs(t, err, errs.ErrWouldBlock)
	require.Less(t, time.Since(start), time.Second)
}

func TestClose_Idempotent(t *testing.T) {
	m := metrics.New()
	server, client := pair(t, sockconf.Default(), m)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	require.True(t, client.Closed())

	err := client.Send([]byte("x"))
	require.ErrorIs(t, err, errs.ErrSessionClosed)
	require.True(t, errs.IsSend(err))

	_, err = client.Receive(8)
	require.ErrorIs(t, err, errs.ErrSessionClosed)
	require.True(t, errs.IsReceive(err))

	require.NoError(t, server.Close())
	require.Equal(t, int64(0), m.Snapshot().ConnectionsActive, "each session releases exactly once")
}

func TestConnect_Refused(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)

	_, err = Connect(context.Background(), "127.0.0.1", port, sockconf.Default(), Options{})
	require.Error(t, err)
	require.True(t, errs.IsConnect(err))
}

func TestConnect_UnresolvableHost(t *testing.T) {
	_, err := Connect(context.Background(), "host.invalid", 80, sockconf.Default(), Options{})
	require.Error(t, err)
	require.True(t, errs.IsConnect(err))
}

func TestConnect_Validation(t *testing.T) {
	_, err := Connect(context.Background(), "127.0.0.1", 0, sockconf.Default(), Options{})
	require.True(t, errs.IsValidation(err))

	_, err = Connect(context.Background(), "", 80, sockconf.Default(), Options{})
	require.True(t, errs.IsValidation(err))
}

func TestReceive_InvalidLength(t *testing.T) {
	server, _ := pair(t, sockconf.Default(), nil)
	_, err := server.Receive(0)
	require.True(t, errs.IsValidation(err))
}

func TestNew_AppliesConfig(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			defer c.Close()
			time.Sleep(200 * time.Millisecond)
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	cfg, err := sockconf.Default().WithBuffers(16384, 16384)
	require.NoError(t, err)
	s := New(conn, cfg, Options{})
	defer s.Close()

	require.Equal(t, cfg, s.Config())
	send, recv, err := sockconf.Effective(conn.(*net.TCPConn))
	require.NoError(t, err)
	require.GreaterOrEqual(t, send, 1024)
	require.GreaterOrEqual(t, recv, 1024)
}
