// Package wire implements the Chat262 binary wire protocol: frame
// headers, every request/response message type, and strict-length
// serialization/deserialization for each. Integers are little-endian via
// internal/wireendian; strings are raw length-prefixed byte slices with
// no terminator.
package wire

import "strconv"

// ProtocolVersion is the only version this implementation speaks.
const ProtocolVersion uint16 = 1

// DefaultPort is the default Chat262 TCP port.
const DefaultPort = 61079

// HeaderSize is the fixed size, in bytes, of every frame header:
// version:u16, type:u16, body_len:u32.
const HeaderSize = 8

// MessageType identifies the kind of a frame's body.
type MessageType uint16

const (
	TypeRegistrationRequest   MessageType = 101
	TypeLoginRequest          MessageType = 102
	TypeLogoutRequest         MessageType = 103
	TypeAccountsRequest       MessageType = 104
	TypeSendTxtRequest        MessageType = 105
	TypeRecvTxtRequest        MessageType = 106
	TypeCorrespondentsRequest MessageType = 107
	TypeDeleteRequest         MessageType = 108

	TypeRegistrationResponse   MessageType = 201
	TypeLoginResponse          MessageType = 202
	TypeLogoutResponse         MessageType = 203
	TypeAccountsResponse       MessageType = 204
	TypeSendTxtResponse        MessageType = 205
	TypeRecvTxtResponse        MessageType = 206
	TypeCorrespondentsResponse MessageType = 207
	TypeDeleteResponse         MessageType = 208

	TypeWrongVersion MessageType = 301
	TypeInvalidType  MessageType = 302
	TypeInvalidBody  MessageType = 303
)

// String gives a human-readable name for logging; unknown types print
// their numeric code.
func (t MessageType) String() string {
	switch t {
	case TypeRegistrationRequest:
		return "registration_request"
	case TypeLoginRequest:
		return "login_request"
	case TypeLogoutRequest:
		return "logout_request"
	case TypeAccountsRequest:
		return "accounts_request"
	case TypeSendTxtRequest:
		return "send_txt_request"
	case TypeRecvTxtRequest:
		return "recv_txt_request"
	case TypeCorrespondentsRequest:
		return "correspondents_request"
	case TypeDeleteRequest:
		return "delete_request"
	case TypeRegistrationResponse:
		return "registration_response"
	case TypeLoginResponse:
		return "login_response"
	case TypeLogoutResponse:
		return "logout_response"
	case TypeAccountsResponse:
		return "accounts_response"
	case TypeSendTxtResponse:
		return "send_txt_response"
	case TypeRecvTxtResponse:
		return "recv_txt_response"
	case TypeCorrespondentsResponse:
		return "correspondents_response"
	case TypeDeleteResponse:
		return "delete_response"
	case TypeWrongVersion:
		return "wrong_version"
	case TypeInvalidType:
		return "invalid_type"
	case TypeInvalidBody:
		return "invalid_body"
	default:
		return strconv.Itoa(int(t))
	}
}

// StatusCode is the protocol-level outcome carried in every response body.
// Deserializers must not assume a value observed on the wire is one of the
// named constants below — callers surface the raw integer unchanged.
type StatusCode uint32

const (
	StatusOK                  StatusCode = 0
	StatusInvalidCredentials  StatusCode = 1
	StatusUserExists          StatusCode = 2
	StatusUserDoesNotExist    StatusCode = 3
	StatusUsernameInvalid     StatusCode = 4
	StatusPasswordInvalid     StatusCode = 5
	StatusUnauthorized        StatusCode = 6
)

// SenderTag identifies whether a stored text was sent ("YOU") or received
// ("OTHER") from the perspective of the chat's owner.
type SenderTag uint8

const (
	TagYou   SenderTag = 0
	TagOther SenderTag = 1
)
