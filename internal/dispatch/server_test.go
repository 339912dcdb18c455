package dispatch

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chat262/internal/store"
	"chat262/internal/transport"
	"chat262/internal/wire"
)

func startTestServer(t *testing.T) (addr string, shutdown func()) {
	t.Helper()
	srv := New(store.New(), zap.NewNop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln.Close()
	addr = ln.Addr().String()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()

	// Wait for the listener to actually be bound.
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

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func roundTrip(t *testing.T, conn net.Conn, reqType wire.MessageType, body []byte) (wire.Header, []byte) {
	t.Helper()
	require.NoError(t, transport.WriteFrame(conn, wire.Header{Version: wire.ProtocolVersion, Type: reqType}, body))
	hdr, respBody, err := transport.ReadFrame(conn)
	require.NoError(t, err)
	return hdr, respBody
}

func statusOf(t *testing.T, body []byte) wire.StatusCode {
	t.Helper()
	resp, err := wire.UnmarshalStatusOnlyResponse(body)
	require.NoError(t, err)
	return resp.Status
}

// Scenario 1: registration validation and duplicate detection.
func TestScenarioRegistration(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()
	conn := dial(t, addr)
	defer conn.Close()

	req := wire.CredentialsRequest{Username: []byte("testuser"), Password: []byte("password")}
	_, body := roundTrip(t, conn, wire.TypeRegistrationRequest, req.Marshal())
	require.Equal(t, wire.StatusOK, statusOf(t, body))

	_, body = roundTrip(t, conn, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("testuser"), Password: []byte("otherpassword")}.Marshal())
	require.Equal(t, wire.StatusUserExists, statusOf(t, body))

	_, body = roundTrip(t, conn, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("A2zpsuE*HbVs"), Password: []byte("cQ7Kdtov394x")}.Marshal())
	require.Equal(t, wire.StatusUsernameInvalid, statusOf(t, body))

	_, body = roundTrip(t, conn, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("3PMgbTmj"), Password: []byte("")}.Marshal())
	require.Equal(t, wire.StatusPasswordInvalid, statusOf(t, body))

	_, body = roundTrip(t, conn, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("us"), Password: []byte("avalidpassword")}.Marshal())
	require.Equal(t, wire.StatusUsernameInvalid, statusOf(t, body))
}

// Scenario 2: login/logout, double logout is Unauthorized.
func TestScenarioLoginLogout(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()
	conn := dial(t, addr)
	defer conn.Close()

	roundTrip(t, conn, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("testuser"), Password: []byte("password")}.Marshal())

	_, body := roundTrip(t, conn, wire.TypeLoginRequest,
		wire.CredentialsRequest{Username: []byte("testuser"), Password: []byte("password")}.Marshal())
	require.Equal(t, wire.StatusOK, statusOf(t, body))

	_, body = roundTrip(t, conn, wire.TypeLogoutRequest, wire.MarshalEmpty())
	require.Equal(t, wire.StatusOK, statusOf(t, body))

	_, body = roundTrip(t, conn, wire.TypeLogoutRequest, wire.MarshalEmpty())
	require.Equal(t, wire.StatusUnauthorized, statusOf(t, body))
}

// Scenario 3: send_txt to an unregistered user, then after registration.
func TestScenarioSendRecvTxt(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()
	connA := dial(t, addr)
	defer connA.Close()
	connB := dial(t, addr)
	defer connB.Close()

	roundTrip(t, connA, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("alice123"), Password: []byte("password")}.Marshal())
	roundTrip(t, connA, wire.TypeLoginRequest,
		wire.CredentialsRequest{Username: []byte("alice123"), Password: []byte("password")}.Marshal())

	_, body := roundTrip(t, connA, wire.TypeSendTxtRequest,
		wire.SendTxtRequest{Recipient: []byte("bobby123"), Text: []byte("hi")}.Marshal())
	require.Equal(t, wire.StatusUserDoesNotExist, statusOf(t, body))

	roundTrip(t, connB, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("bobby123"), Password: []byte("password")}.Marshal())
	roundTrip(t, connB, wire.TypeLoginRequest,
		wire.CredentialsRequest{Username: []byte("bobby123"), Password: []byte("password")}.Marshal())

	_, body = roundTrip(t, connA, wire.TypeSendTxtRequest,
		wire.SendTxtRequest{Recipient: []byte("bobby123"), Text: []byte("hi")}.Marshal())
	require.Equal(t, wire.StatusOK, statusOf(t, body))

	_, body = roundTrip(t, connB, wire.TypeRecvTxtRequest,
		wire.RecvTxtRequest{Sender: []byte("alice123")}.Marshal())
	resp, err := wire.UnmarshalRecvTxtResponse(body)
	require.NoError(t, err)
	require.Equal(t, wire.StatusOK, resp.Status)
	require.Len(t, resp.Texts, 1)
	require.Equal(t, wire.TagOther, resp.Texts[0].Tag)
	require.Equal(t, "hi", string(resp.Texts[0].Content))
}

// Scenario 4: self-chat interleaving.
func TestScenarioSelfChat(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()
	conn := dial(t, addr)
	defer conn.Close()

	roundTrip(t, conn, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("alice123"), Password: []byte("password")}.Marshal())
	roundTrip(t, conn, wire.TypeLoginRequest,
		wire.CredentialsRequest{Username: []byte("alice123"), Password: []byte("password")}.Marshal())

	roundTrip(t, conn, wire.TypeSendTxtRequest,
		wire.SendTxtRequest{Recipient: []byte("alice123"), Text: []byte("m1")}.Marshal())
	roundTrip(t, conn, wire.TypeSendTxtRequest,
		wire.SendTxtRequest{Recipient: []byte("alice123"), Text: []byte("m2")}.Marshal())

	_, body := roundTrip(t, conn, wire.TypeRecvTxtRequest,
		wire.RecvTxtRequest{Sender: []byte("alice123")}.Marshal())
	resp, err := wire.UnmarshalRecvTxtResponse(body)
	require.NoError(t, err)
	require.Len(t, resp.Texts, 4)
	wantTags := []wire.SenderTag{wire.TagYou, wire.TagOther, wire.TagYou, wire.TagOther}
	wantContent := []string{"m1", "m1", "m2", "m2"}
	for i := range wantTags {
		require.Equal(t, wantTags[i], resp.Texts[i].Tag)
		require.Equal(t, wantContent[i], string(resp.Texts[i].Content))
	}
}

// Scenario 5: wrong version closes the connection after the response.
func TestScenarioWrongVersion(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()
	conn := dial(t, addr)
	defer conn.Close()

	require.NoError(t, transport.WriteFrame(conn, wire.Header{Version: 2, Type: wire.TypeLoginRequest}, nil))
	hdr, body, err := transport.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, wire.TypeWrongVersion, hdr.Type)
	resp, err := wire.UnmarshalWrongVersionResponse(body)
	require.NoError(t, err)
	require.Equal(t, wire.ProtocolVersion, resp.CorrectVersion)

	_, _, err = transport.ReadFrame(conn)
	require.ErrorIs(t, err, transport.ErrConnectionClosed)
}

// Scenario 6: unknown type keeps the connection open.
func TestScenarioUnknownType(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()
	conn := dial(t, addr)
	defer conn.Close()

	require.NoError(t, transport.WriteFrame(conn, wire.Header{Version: wire.ProtocolVersion, Type: 262}, nil))
	hdr, body, err := transport.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, wire.TypeInvalidType, hdr.Type)
	require.Empty(t, body)

	_, body = roundTrip(t, conn, wire.TypeAccountsRequest, wire.AccountsRequest{Pattern: []byte("*")}.Marshal())
	require.Equal(t, wire.StatusUnauthorized, statusOf2(t, body))
}

// Scenario 7: delete cascades and invalidates related views.
func TestScenarioDeleteCascades(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()
	connA := dial(t, addr)
	defer connA.Close()
	connB := dial(t, addr)
	defer connB.Close()

	roundTrip(t, connA, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("alice123"), Password: []byte("password")}.Marshal())
	roundTrip(t, connA, wire.TypeLoginRequest,
		wire.CredentialsRequest{Username: []byte("alice123"), Password: []byte("password")}.Marshal())
	roundTrip(t, connB, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("bobby123"), Password: []byte("password")}.Marshal())
	roundTrip(t, connB, wire.TypeLoginRequest,
		wire.CredentialsRequest{Username: []byte("bobby123"), Password: []byte("password")}.Marshal())

	roundTrip(t, connA, wire.TypeSendTxtRequest,
		wire.SendTxtRequest{Recipient: []byte("bobby123"), Text: []byte("hi")}.Marshal())

	_, body := roundTrip(t, connA, wire.TypeDeleteRequest, wire.MarshalEmpty())
	require.Equal(t, wire.StatusOK, statusOf(t, body))

	_, body = roundTrip(t, connA, wire.TypeLoginRequest,
		wire.CredentialsRequest{Username: []byte("alice123"), Password: []byte("password")}.Marshal())
	require.Equal(t, wire.StatusInvalidCredentials, statusOf(t, body))

	_, body = roundTrip(t, connA, wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: []byte("alice123"), Password: []byte("password")}.Marshal())
	require.Equal(t, wire.StatusUserExists, statusOf(t, body))

	_, body = roundTrip(t, connB, wire.TypeCorrespondentsRequest, wire.MarshalEmpty())
	correspResp, err := wire.UnmarshalUsernamesResponse(body)
	require.NoError(t, err)
	require.Equal(t, wire.StatusOK, correspResp.Status)
	for _, u := range correspResp.Usernames {
		require.NotEqual(t, "alice123", string(u))
	}

	_, body = roundTrip(t, connB, wire.TypeRecvTxtRequest,
		wire.RecvTxtRequest{Sender: []byte("alice123")}.Marshal())
	require.Equal(t, wire.StatusUserDoesNotExist, statusOf(t, body))
}

func statusOf2(t *testing.T, body []byte) wire.StatusCode {
	t.Helper()
	resp, err := wire.UnmarshalUsernamesResponse(body)
	require.NoError(t, err)
	return resp.Status
}
