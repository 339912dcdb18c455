package client_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chat262/internal/client"
	"chat262/internal/dispatch"
	"chat262/internal/store"
	"chat262/internal/wire"
)

func startServer(t *testing.T) (addr string, shutdown func()) {
	t.Helper()
	srv := dispatch.New(store.New(), zap.NewNop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr = ln.Addr().String()
	ln.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()
	require.Eventually(t, func() bool {
		c, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return addr, func() {
		require.NoError(t, srv.Shutdown())
		<-errCh
	}
}

func TestClientRegisterLoginSendRecv(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()

	alice, err := client.Dial(addr)
	require.NoError(t, err)
	defer alice.Close()
	bob, err := client.Dial(addr)
	require.NoError(t, err)
	defer bob.Close()

	status, outcome := alice.Register([]byte("alice123"), []byte("password"))
	require.Equal(t, client.Ok, outcome)
	require.Equal(t, wire.StatusOK, status)

	status, outcome = alice.Login([]byte("alice123"), []byte("password"))
	require.Equal(t, client.Ok, outcome)
	require.Equal(t, wire.StatusOK, status)

	status, outcome = bob.Register([]byte("bobby123"), []byte("password"))
	require.Equal(t, client.Ok, outcome)
	require.Equal(t, wire.StatusOK, status)
	status, outcome = bob.Login([]byte("bobby123"), []byte("password"))
	require.Equal(t, client.Ok, outcome)
	require.Equal(t, wire.StatusOK, status)

	status, outcome = alice.SendTxt([]byte("bobby123"), []byte("hello"))
	require.Equal(t, client.Ok, outcome)
	require.Equal(t, wire.StatusOK, status)

	status, texts, outcome := bob.RecvTxt([]byte("alice123"))
	require.Equal(t, client.Ok, outcome)
	require.Equal(t, wire.StatusOK, status)
	require.Len(t, texts, 1)
	require.Equal(t, store.Other, texts[0].Tag)
	require.Equal(t, "hello", string(texts[0].Content))

	status, names, outcome := alice.Accounts([]byte("*"))
	require.Equal(t, client.Ok, outcome)
	require.Equal(t, wire.StatusOK, status)
	require.Contains(t, names, "alice123")
	require.Contains(t, names, "bobby123")
}

func TestClientWrongVersionUnsetOnNormalRoundTrip(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()

	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	_, outcome := c.Login([]byte("nobody"), []byte("whatever"))
	// A real Client always sends ProtocolVersion, so the server never
	// answers with wrong_version here: a normal round trip must not report
	// HeaderMismatch and must leave the WrongVersion field unset.
	require.NotEqual(t, client.HeaderMismatch, outcome)
	require.Equal(t, uint16(0), c.WrongVersion)
}

func TestClientConnectionClosed(t *testing.T) {
	addr, shutdown := startServer(t)

	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	shutdown()

	_, outcome := c.Logout()
	require.Contains(t, []client.Outcome{client.ConnectionClosed, client.SendFailed, client.RecvFailed}, outcome)
}
