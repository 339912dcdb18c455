package wire

import "chat262/internal/wireendian"

// This file implements serialize/deserialize for every request and
// response body. Every Unmarshal function enforces the strict length
// policy from spec §4.2: the body must be exactly as long as its own
// length prefixes say, with no slack and no shortfall. Every Marshal
// function produces a body whose byte count is exactly what a paired
// Header.BodyLen must declare.

// --- low-level cursor helpers -----------------------------------------

func putU32(buf []byte, off int, v uint32) int {
	wireendian.PutUint32(buf[off:off+4], v)
	return off + 4
}

func putBytes(buf []byte, off int, b []byte) int {
	copy(buf[off:], b)
	return off + len(b)
}

func readU32(data []byte, off int) (uint32, int, error) {
	if off < 0 || off+4 > len(data) {
		return 0, 0, ErrBodyMalformed
	}
	return wireendian.Uint32(data[off : off+4]), off + 4, nil
}

func readBytes(data []byte, off int, n int) ([]byte, int, error) {
	if n < 0 || off < 0 || off+n > len(data) {
		return nil, 0, ErrBodyMalformed
	}
	return data[off : off+n], off + n, nil
}

func requireExhausted(data []byte, off int) error {
	if off != len(data) {
		return ErrBodyMalformed
	}
	return nil
}

func requireEmpty(data []byte) error {
	if len(data) != 0 {
		return ErrBodyMalformed
	}
	return nil
}

// --- registration_request / login_request (101 / 102) ------------------

// CredentialsRequest is the shared body shape of registration_request and
// login_request: u32 ulen, u32 plen, ulen bytes, plen bytes.
type CredentialsRequest struct {
	Username []byte
	Password []byte
}

func (m CredentialsRequest) Marshal() []byte {
	buf := make([]byte, 4+4+len(m.Username)+len(m.Password))
	off := putU32(buf, 0, uint32(len(m.Username)))
	off = putU32(buf, off, uint32(len(m.Password)))
	off = putBytes(buf, off, m.Username)
	putBytes(buf, off, m.Password)
	return buf
}

func UnmarshalCredentialsRequest(data []byte) (CredentialsRequest, error) {
	ulen, off, err := readU32(data, 0)
	if err != nil {
		return CredentialsRequest{}, err
	}
	plen, off, err := readU32(data, off)
	if err != nil {
		return CredentialsRequest{}, err
	}
	username, off, err := readBytes(data, off, int(ulen))
	if err != nil {
		return CredentialsRequest{}, err
	}
	password, off, err := readBytes(data, off, int(plen))
	if err != nil {
		return CredentialsRequest{}, err
	}
	if err := requireExhausted(data, off); err != nil {
		return CredentialsRequest{}, err
	}
	return CredentialsRequest{Username: clone(username), Password: clone(password)}, nil
}

// --- logout_request / correspondents_request / delete_request ---------
// (103 / 107 / 108): empty bodies.

func MarshalEmpty() []byte { return nil }

func UnmarshalEmpty(data []byte) error { return requireEmpty(data) }

// --- accounts_request (104) --------------------------------------------

// AccountsRequest carries the wildcard pattern. An empty frame (no length
// prefix at all) is malformed: the pattern is mandatory, per spec §9.
type AccountsRequest struct {
	Pattern []byte
}

func (m AccountsRequest) Marshal() []byte {
	buf := make([]byte, 4+len(m.Pattern))
	off := putU32(buf, 0, uint32(len(m.Pattern)))
	putBytes(buf, off, m.Pattern)
	return buf
}

func UnmarshalAccountsRequest(data []byte) (AccountsRequest, error) {
	plen, off, err := readU32(data, 0)
	if err != nil {
		return AccountsRequest{}, err
	}
	pattern, off, err := readBytes(data, off, int(plen))
	if err != nil {
		return AccountsRequest{}, err
	}
	if err := requireExhausted(data, off); err != nil {
		return AccountsRequest{}, err
	}
	return AccountsRequest{Pattern: clone(pattern)}, nil
}

// --- send_txt_request (105) --------------------------------------------

// SendTxtRequest: u32 ulen, u32 tlen, ulen bytes (recipient), tlen bytes (text).
type SendTxtRequest struct {
	Recipient []byte
	Text      []byte
}

func (m SendTxtRequest) Marshal() []byte {
	buf := make([]byte, 4+4+len(m.Recipient)+len(m.Text))
	off := putU32(buf, 0, uint32(len(m.Recipient)))
	off = putU32(buf, off, uint32(len(m.Text)))
	off = putBytes(buf, off, m.Recipient)
	putBytes(buf, off, m.Text)
	return buf
}

func UnmarshalSendTxtRequest(data []byte) (SendTxtRequest, error) {
	ulen, off, err := readU32(data, 0)
	if err != nil {
		return SendTxtRequest{}, err
	}
	tlen, off, err := readU32(data, off)
	if err != nil {
		return SendTxtRequest{}, err
	}
	recipient, off, err := readBytes(data, off, int(ulen))
	if err != nil {
		return SendTxtRequest{}, err
	}
	text, off, err := readBytes(data, off, int(tlen))
	if err != nil {
		return SendTxtRequest{}, err
	}
	if err := requireExhausted(data, off); err != nil {
		return SendTxtRequest{}, err
	}
	return SendTxtRequest{Recipient: clone(recipient), Text: clone(text)}, nil
}

// --- recv_txt_request (106) --------------------------------------------

// RecvTxtRequest: u32 ulen, ulen bytes (sender).
type RecvTxtRequest struct {
	Sender []byte
}

func (m RecvTxtRequest) Marshal() []byte {
	buf := make([]byte, 4+len(m.Sender))
	off := putU32(buf, 0, uint32(len(m.Sender)))
	putBytes(buf, off, m.Sender)
	return buf
}

func UnmarshalRecvTxtRequest(data []byte) (RecvTxtRequest, error) {
	ulen, off, err := readU32(data, 0)
	if err != nil {
		return RecvTxtRequest{}, err
	}
	sender, off, err := readBytes(data, off, int(ulen))
	if err != nil {
		return RecvTxtRequest{}, err
	}
	if err := requireExhausted(data, off); err != nil {
		return RecvTxtRequest{}, err
	}
	return RecvTxtRequest{Sender: clone(sender)}, nil
}

// --- status-only responses (201, 202, 203, 205, 208) -------------------

// StatusOnlyResponse is the body shape shared by registration_response,
// login_response, logout_response, send_txt_response, and
// delete_response: a bare u32 status_code, with no variable payload even
// when status is OK.
type StatusOnlyResponse struct {
	Status StatusCode
}

func (m StatusOnlyResponse) Marshal() []byte {
	buf := make([]byte, 4)
	putU32(buf, 0, uint32(m.Status))
	return buf
}

func UnmarshalStatusOnlyResponse(data []byte) (StatusOnlyResponse, error) {
	status, off, err := readU32(data, 0)
	if err != nil {
		return StatusOnlyResponse{}, err
	}
	if err := requireExhausted(data, off); err != nil {
		return StatusOnlyResponse{}, err
	}
	return StatusOnlyResponse{Status: StatusCode(status)}, nil
}

// --- accounts_response / correspondents_response (204, 207) -----------

// UsernamesResponse is the shared shape of accounts_response and
// correspondents_response: u32 status_code, then — only when
// status == OK — u32 count, u32 lens[count], concatenated username bytes.
type UsernamesResponse struct {
	Status    StatusCode
	Usernames [][]byte
}

func (m UsernamesResponse) Marshal() []byte {
	if m.Status != StatusOK {
		buf := make([]byte, 4)
		putU32(buf, 0, uint32(m.Status))
		return buf
	}
	total := 0
	for _, u := range m.Usernames {
		total += len(u)
	}
	buf := make([]byte, 4+4+4*len(m.Usernames)+total)
	off := putU32(buf, 0, uint32(m.Status))
	off = putU32(buf, off, uint32(len(m.Usernames)))
	lenOff := off
	off += 4 * len(m.Usernames)
	for _, u := range m.Usernames {
		putU32(buf, lenOff, uint32(len(u)))
		lenOff += 4
		off = putBytes(buf, off, u)
	}
	return buf
}

func UnmarshalUsernamesResponse(data []byte) (UsernamesResponse, error) {
	status, off, err := readU32(data, 0)
	if err != nil {
		return UsernamesResponse{}, err
	}
	if StatusCode(status) != StatusOK {
		if err := requireExhausted(data, off); err != nil {
			return UsernamesResponse{}, err
		}
		return UsernamesResponse{Status: StatusCode(status)}, nil
	}

	count, off, err := readU32(data, off)
	if err != nil {
		return UsernamesResponse{}, err
	}
	lens := make([]uint32, count)
	for i := range lens {
		var l uint32
		l, off, err = readU32(data, off)
		if err != nil {
			return UsernamesResponse{}, err
		}
		lens[i] = l
	}
	usernames := make([][]byte, count)
	for i, l := range lens {
		var b []byte
		b, off, err = readBytes(data, off, int(l))
		if err != nil {
			return UsernamesResponse{}, err
		}
		usernames[i] = clone(b)
	}
	if err := requireExhausted(data, off); err != nil {
		return UsernamesResponse{}, err
	}
	return UsernamesResponse{Status: StatusCode(status), Usernames: usernames}, nil
}

// --- recv_txt_response (206) -------------------------------------------

// Text is one entry of a recv_txt_response payload.
type Text struct {
	Tag     SenderTag
	Content []byte
}

// RecvTxtResponse: u32 status_code, then — only when status == OK —
// u32 count, u8 tags[count], u32 text_lens[count], concatenated text bytes.
type RecvTxtResponse struct {
	Status StatusCode
	Texts  []Text
}

func (m RecvTxtResponse) Marshal() []byte {
	if m.Status != StatusOK {
		buf := make([]byte, 4)
		putU32(buf, 0, uint32(m.Status))
		return buf
	}
	total := 0
	for _, t := range m.Texts {
		total += len(t.Content)
	}
	n := len(m.Texts)
	buf := make([]byte, 4+4+n+4*n+total)
	off := putU32(buf, 0, uint32(m.Status))
	off = putU32(buf, off, uint32(n))
	tagOff := off
	off += n
	lenOff := off
	off += 4 * n
	for i, t := range m.Texts {
		buf[tagOff+i] = byte(t.Tag)
		putU32(buf, lenOff, uint32(len(t.Content)))
		lenOff += 4
		off = putBytes(buf, off, t.Content)
	}
	return buf
}

func UnmarshalRecvTxtResponse(data []byte) (RecvTxtResponse, error) {
	status, off, err := readU32(data, 0)
	if err != nil {
		return RecvTxtResponse{}, err
	}
	if StatusCode(status) != StatusOK {
		if err := requireExhausted(data, off); err != nil {
			return RecvTxtResponse{}, err
		}
		return RecvTxtResponse{Status: StatusCode(status)}, nil
	}

	count, off, err := readU32(data, off)
	if err != nil {
		return RecvTxtResponse{}, err
	}
	n := int(count)
	tagBytes, off, err := readBytes(data, off, n)
	if err != nil {
		return RecvTxtResponse{}, err
	}
	lens := make([]uint32, n)
	for i := range lens {
		var l uint32
		l, off, err = readU32(data, off)
		if err != nil {
			return RecvTxtResponse{}, err
		}
		lens[i] = l
	}
	texts := make([]Text, n)
	for i := 0; i < n; i++ {
		var content []byte
		content, off, err = readBytes(data, off, int(lens[i]))
		if err != nil {
			return RecvTxtResponse{}, err
		}
		texts[i] = Text{Tag: SenderTag(tagBytes[i]), Content: clone(content)}
	}
	if err := requireExhausted(data, off); err != nil {
		return RecvTxtResponse{}, err
	}
	return RecvTxtResponse{Status: StatusCode(status), Texts: texts}, nil
}

// --- wrong_version / invalid_type / invalid_body (301, 302, 303) ------

// WrongVersionResponse: u16 correct_version.
type WrongVersionResponse struct {
	CorrectVersion uint16
}

func (m WrongVersionResponse) Marshal() []byte {
	buf := make([]byte, 2)
	wireendian.PutUint16(buf, m.CorrectVersion)
	return buf
}

func UnmarshalWrongVersionResponse(data []byte) (WrongVersionResponse, error) {
	if len(data) != 2 {
		return WrongVersionResponse{}, ErrBodyMalformed
	}
	return WrongVersionResponse{CorrectVersion: wireendian.Uint16(data)}, nil
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
