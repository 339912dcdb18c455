// Package client implements the Chat262 client-side protocol binding: one
// method per request, each a synchronous round trip over a single TCP
// connection. Every method returns an Outcome describing how the round
// trip went (Ok, or the specific transport failure) alongside the
// decoded response when Ok.
package client

import (
	"errors"
	"net"
	"sync"
	"time"

	"chat262/internal/store"
	"chat262/internal/transport"
	"chat262/internal/wire"
)

// Outcome classifies how a round trip went. Only Ok carries a meaningful
// response payload; callers must check Outcome before looking at status
// codes or response fields.
type Outcome int

const (
	// Ok means the frame was sent, a response was read, and the response
	// header matched the expected type and protocol version.
	Ok Outcome = iota
	// SendFailed means the request frame could not be written.
	SendFailed
	// RecvFailed means the response frame could not be read for a reason
	// other than the peer closing the connection.
	RecvFailed
	// ConnectionClosed means the peer closed the connection while this
	// call was waiting for a response.
	ConnectionClosed
	// HeaderMismatch means a response was read but its type didn't match
	// what this call expected (a protocol-level wrong_version notice
	// surfaces this way too — see WrongVersion on Client).
	HeaderMismatch
	// BodyMalformed means the response header was fine but the body
	// failed to deserialize under the strict length policy.
	BodyMalformed
)

func (o Outcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case SendFailed:
		return "send_failed"
	case RecvFailed:
		return "recv_failed"
	case ConnectionClosed:
		return "connection_closed"
	case HeaderMismatch:
		return "header_mismatch"
	case BodyMalformed:
		return "body_malformed"
	default:
		return "unknown"
	}
}

// Client owns one TCP connection to a Chat262 server. Every method
// round-trips one request; calls are serialized with an internal mutex
// because the wire protocol allows only one request in flight per
// connection (see internal/poller, which shares a Client with the
// foreground UI).
type Client struct {
	mu   sync.Mutex
	conn net.Conn

	// WrongVersion is set after a round trip observes a wrong_version
	// notice, recording the version the server expects. The connection
	// is unusable afterward; callers should report this to the user.
	WrongVersion uint16
}

// Dial opens a connection to addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// SetDeadline applies a read/write deadline to the underlying connection
// for the next round trip. Pass the zero Time to clear it.
func (c *Client) SetDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.SetDeadline(t)
}

// roundTrip sends one frame and reads one frame back, classifying the
// result. On a type mismatch where the server actually sent
// wrong_version, it records WrongVersion and reports HeaderMismatch.
func (c *Client) roundTrip(reqType wire.MessageType, body []byte, wantType wire.MessageType) (wire.Header, []byte, Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := transport.WriteFrame(c.conn, wire.Header{Version: wire.ProtocolVersion, Type: reqType}, body); err != nil {
		return wire.Header{}, nil, SendFailed
	}

	hdr, respBody, err := transport.ReadFrame(c.conn)
	if err != nil {
		if errors.Is(err, transport.ErrConnectionClosed) {
			return wire.Header{}, nil, ConnectionClosed
		}
		return wire.Header{}, nil, RecvFailed
	}

	if hdr.Type == wire.TypeWrongVersion {
		if resp, err := wire.UnmarshalWrongVersionResponse(respBody); err == nil {
			c.WrongVersion = resp.CorrectVersion
		}
		return hdr, respBody, HeaderMismatch
	}
	if hdr.Version != wire.ProtocolVersion || hdr.Type != wantType {
		return hdr, respBody, HeaderMismatch
	}
	return hdr, respBody, Ok
}

// Register sends a registration_request and returns its status code.
func (c *Client) Register(username, password []byte) (wire.StatusCode, Outcome) {
	_, body, outcome := c.roundTrip(wire.TypeRegistrationRequest,
		wire.CredentialsRequest{Username: username, Password: password}.Marshal(),
		wire.TypeRegistrationResponse)
	if outcome != Ok {
		return 0, outcome
	}
	resp, err := wire.UnmarshalStatusOnlyResponse(body)
	if err != nil {
		return 0, BodyMalformed
	}
	return resp.Status, Ok
}

// Login sends a login_request and returns its status code.
func (c *Client) Login(username, password []byte) (wire.StatusCode, Outcome) {
	_, body, outcome := c.roundTrip(wire.TypeLoginRequest,
		wire.CredentialsRequest{Username: username, Password: password}.Marshal(),
		wire.TypeLoginResponse)
	if outcome != Ok {
		return 0, outcome
	}
	resp, err := wire.UnmarshalStatusOnlyResponse(body)
	if err != nil {
		return 0, BodyMalformed
	}
	return resp.Status, Ok
}

// Logout sends a logout_request and returns its status code.
func (c *Client) Logout() (wire.StatusCode, Outcome) {
	_, body, outcome := c.roundTrip(wire.TypeLogoutRequest, wire.MarshalEmpty(), wire.TypeLogoutResponse)
	if outcome != Ok {
		return 0, outcome
	}
	resp, err := wire.UnmarshalStatusOnlyResponse(body)
	if err != nil {
		return 0, BodyMalformed
	}
	return resp.Status, Ok
}

// Accounts sends an accounts_request with the given wildcard pattern.
func (c *Client) Accounts(pattern []byte) (wire.StatusCode, []string, Outcome) {
	_, body, outcome := c.roundTrip(wire.TypeAccountsRequest,
		wire.AccountsRequest{Pattern: pattern}.Marshal(), wire.TypeAccountsResponse)
	if outcome != Ok {
		return 0, nil, outcome
	}
	resp, err := wire.UnmarshalUsernamesResponse(body)
	if err != nil {
		return 0, nil, BodyMalformed
	}
	return resp.Status, toStrings(resp.Usernames), Ok
}

// SendTxt sends a send_txt_request.
func (c *Client) SendTxt(recipient, text []byte) (wire.StatusCode, Outcome) {
	_, body, outcome := c.roundTrip(wire.TypeSendTxtRequest,
		wire.SendTxtRequest{Recipient: recipient, Text: text}.Marshal(), wire.TypeSendTxtResponse)
	if outcome != Ok {
		return 0, outcome
	}
	resp, err := wire.UnmarshalStatusOnlyResponse(body)
	if err != nil {
		return 0, BodyMalformed
	}
	return resp.Status, Ok
}

// Text is a decoded chat entry with the tag translated to the store's
// own enum so callers outside the wire package never import it just to
// compare tags.
type Text struct {
	Tag     store.SenderTag
	Content []byte
}

// RecvTxt sends a recv_txt_request for the chat with sender.
func (c *Client) RecvTxt(sender []byte) (wire.StatusCode, []Text, Outcome) {
	_, body, outcome := c.roundTrip(wire.TypeRecvTxtRequest,
		wire.RecvTxtRequest{Sender: sender}.Marshal(), wire.TypeRecvTxtResponse)
	if outcome != Ok {
		return 0, nil, outcome
	}
	resp, err := wire.UnmarshalRecvTxtResponse(body)
	if err != nil {
		return 0, nil, BodyMalformed
	}
	texts := make([]Text, len(resp.Texts))
	for i, t := range resp.Texts {
		tag := store.You
		if t.Tag == wire.TagOther {
			tag = store.Other
		}
		texts[i] = Text{Tag: tag, Content: t.Content}
	}
	return resp.Status, texts, Ok
}

// Correspondents sends a correspondents_request.
func (c *Client) Correspondents() (wire.StatusCode, []string, Outcome) {
	_, body, outcome := c.roundTrip(wire.TypeCorrespondentsRequest, wire.MarshalEmpty(), wire.TypeCorrespondentsResponse)
	if outcome != Ok {
		return 0, nil, outcome
	}
	resp, err := wire.UnmarshalUsernamesResponse(body)
	if err != nil {
		return 0, nil, BodyMalformed
	}
	return resp.Status, toStrings(resp.Usernames), Ok
}

// Delete sends a delete_request.
func (c *Client) Delete() (wire.StatusCode, Outcome) {
	_, body, outcome := c.roundTrip(wire.TypeDeleteRequest, wire.MarshalEmpty(), wire.TypeDeleteResponse)
	if outcome != Ok {
		return 0, outcome
	}
	resp, err := wire.UnmarshalStatusOnlyResponse(body)
	if err != nil {
		return 0, BodyMalformed
	}
	return resp.Status, Ok
}

func toStrings(bs [][]byte) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}
