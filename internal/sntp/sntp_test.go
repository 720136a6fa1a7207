package sntp

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "socklab/internal/errors"
	"socklab/internal/sockconf"
)

// fakeServer answers every request with reply(request).
func fakeServer(t *testing.T, reply func(req []byte) []byte) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	go func() {
		buf := make([]byte, 512)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			if out := reply(buf[:n]); out != nil {
				pc.WriteTo(out, addr) //nolint:errcheck
			}
		}
	}()
	return pc.LocalAddr().String()
}

func ntpReply(t time.Time) []byte {
	b := make([]byte, PacketSize)
	b[0] = 0x1C // LI=0, VN=3, Mode=4 (server)
	secs := uint32(t.Unix() + ntpEpochOffset)
	frac := uint32((int64(t.Nanosecond()) << 32) / int64(time.Second))
	binary.BigEndian.PutUint32(b[transmitOffset:], secs)
	binary.BigEndian.PutUint32(b[transmitOffset+4:], frac)
	return b
}

func TestRequest(t *testing.T) {
	req := Request()
	require.Len(t, req, 48)
	require.Equal(t, byte(0x1B), req[0])
	for _, b := range req[1:] {
		require.Zero(t, b)
	}
}

func TestParseTransmitTime(t *testing.T) {
	want := time.Date(2026, 10, 15, 12, 0, 0, 500_000_000, time.UTC)
	got, err := ParseTransmitTime(ntpReply(want))
	require.NoError(t, err)
	require.WithinDuration(t, want, got, time.Microsecond)

	_, err = ParseTransmitTime(make([]byte, 47))
	require.Error(t, err)
}

func TestQuery_Offset(t *testing.T) {
	serverTime := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	local := serverTime.Add(1500 * time.Millisecond)

	seen := make(chan []byte, 1)
	addr := fakeServer(t, func(req []byte) []byte {
		seen <- append([]byte(nil), req...)
		return ntpReply(serverTime)
	})

	c := &Client{Server: addr, Socket: sockconf.Default(), Now: func() time.Time { return local }}
	res, err := c.Query(context.Background())
	require.NoError(t, err)
	require.Equal(t, Request(), <-seen)
	require.True(t, res.ServerTime.Equal(serverTime))
	require.Equal(t, 1500*time.Millisecond, res.Offset)
	require.Equal(t, addr, res.Server)
	require.Contains(t, res.String(), "offset=1.50s")
}

func TestQuery_ShortReply(t *testing.T) {
	addr := fakeServer(t, func([]byte) []byte { return make([]byte, 20) })

	c := &Client{Server: addr, Socket: sockconf.Default()}
	_, err := c.Query(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "short reply")
}

func TestQuery_Timeout(t *testing.T) {
	addr := fakeServer(t, func([]byte) []byte { return nil })

	cfg, err := sockconf.Default().WithTimeout(100 * time.Millisecond)
	require.NoError(t, err)
	c := &Client{Server: addr, Socket: cfg}

	start := time.Now()
	_, err = c.Query(context.Background())
	require.True(t, errs.IsReceive(err), "got %v", err)
	require.True(t, errs.IsTimeout(err))
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestQuery_ContextCancel(t *testing.T) {
	addr := fakeServer(t, func([]byte) []byte { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := (&Client{Server: addr}).Query(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
