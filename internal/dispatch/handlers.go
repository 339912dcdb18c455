package dispatch

import (
	"errors"
	"net"

	"go.uber.org/zap"

	"chat262/internal/store"
	"chat262/internal/wire"
)

// dispatch routes one request body to its handler. It returns
// shouldClose=true only for a malformed body (after sending
// invalid_body_response); a non-nil error reports that the response
// could not be sent.
func (s *Server) dispatch(session store.SessionID, typ wire.MessageType, body []byte, conn net.Conn) (bool, error) {
	switch typ {
	case wire.TypeRegistrationRequest:
		return s.handleRegistration(session, body, conn)
	case wire.TypeLoginRequest:
		return s.handleLogin(session, body, conn)
	case wire.TypeLogoutRequest:
		return s.handleLogout(session, body, conn)
	case wire.TypeAccountsRequest:
		return s.handleAccounts(session, body, conn)
	case wire.TypeSendTxtRequest:
		return s.handleSendTxt(session, body, conn)
	case wire.TypeRecvTxtRequest:
		return s.handleRecvTxt(session, body, conn)
	case wire.TypeCorrespondentsRequest:
		return s.handleCorrespondents(session, body, conn)
	case wire.TypeDeleteRequest:
		return s.handleDelete(session, body, conn)
	default:
		s.logger.Debug("unknown message type", zap.Uint16("type", uint16(typ)))
		return false, s.sendFrame(conn, wire.TypeInvalidType, wire.MarshalEmpty())
	}
}

func (s *Server) sendInvalidBody(conn net.Conn) (bool, error) {
	return true, s.sendFrame(conn, wire.TypeInvalidBody, wire.MarshalEmpty())
}

func (s *Server) handleRegistration(session store.SessionID, body []byte, conn net.Conn) (bool, error) {
	req, err := wire.UnmarshalCredentialsRequest(body)
	if err != nil {
		return s.sendInvalidBody(conn)
	}

	status := wire.StatusOK
	switch err := s.store.Register(req.Username, req.Password); {
	case errors.Is(err, store.ErrUsernameInvalid):
		status = wire.StatusUsernameInvalid
	case errors.Is(err, store.ErrPasswordInvalid):
		status = wire.StatusPasswordInvalid
	case errors.Is(err, store.ErrUserExists):
		status = wire.StatusUserExists
	}
	s.logger.Info("registration", zap.String("session", session.String()), zap.Uint32("status", uint32(status)))
	return false, s.sendFrame(conn, wire.TypeRegistrationResponse, wire.StatusOnlyResponse{Status: status}.Marshal())
}

func (s *Server) handleLogin(session store.SessionID, body []byte, conn net.Conn) (bool, error) {
	req, err := wire.UnmarshalCredentialsRequest(body)
	if err != nil {
		return s.sendInvalidBody(conn)
	}

	// Double-login policy: unbind first, then attempt the new login.
	if s.store.IsLoggedIn(session) {
		_ = s.store.Logout(session)
	}

	status := wire.StatusOK
	if err := s.store.Login(session, req.Username, req.Password); err != nil {
		status = wire.StatusInvalidCredentials
	}
	s.logger.Info("login", zap.String("session", session.String()), zap.Uint32("status", uint32(status)))
	return false, s.sendFrame(conn, wire.TypeLoginResponse, wire.StatusOnlyResponse{Status: status}.Marshal())
}

func (s *Server) handleLogout(session store.SessionID, body []byte, conn net.Conn) (bool, error) {
	if err := wire.UnmarshalEmpty(body); err != nil {
		return s.sendInvalidBody(conn)
	}

	status := wire.StatusOK
	if err := s.store.Logout(session); err != nil {
		status = wire.StatusUnauthorized
	}
	s.logger.Info("logout", zap.String("session", session.String()), zap.Uint32("status", uint32(status)))
	return false, s.sendFrame(conn, wire.TypeLogoutResponse, wire.StatusOnlyResponse{Status: status}.Marshal())
}

func (s *Server) handleAccounts(session store.SessionID, body []byte, conn net.Conn) (bool, error) {
	req, err := wire.UnmarshalAccountsRequest(body)
	if err != nil {
		return s.sendInvalidBody(conn)
	}

	usernames, err := s.store.GetUsernames(session, req.Pattern)
	if err != nil {
		return false, s.sendFrame(conn, wire.TypeAccountsResponse,
			wire.UsernamesResponse{Status: wire.StatusUnauthorized}.Marshal())
	}

	resp := wire.UsernamesResponse{Status: wire.StatusOK, Usernames: toByteSlices(usernames)}
	return false, s.sendFrame(conn, wire.TypeAccountsResponse, resp.Marshal())
}

func (s *Server) handleSendTxt(session store.SessionID, body []byte, conn net.Conn) (bool, error) {
	req, err := wire.UnmarshalSendTxtRequest(body)
	if err != nil {
		return s.sendInvalidBody(conn)
	}

	status := wire.StatusOK
	switch err := s.store.SendTxt(session, req.Recipient, req.Text); {
	case errors.Is(err, store.ErrNotLoggedIn):
		status = wire.StatusUnauthorized
	case errors.Is(err, store.ErrUserDoesNotExist):
		status = wire.StatusUserDoesNotExist
	}
	return false, s.sendFrame(conn, wire.TypeSendTxtResponse, wire.StatusOnlyResponse{Status: status}.Marshal())
}

func (s *Server) handleRecvTxt(session store.SessionID, body []byte, conn net.Conn) (bool, error) {
	req, err := wire.UnmarshalRecvTxtRequest(body)
	if err != nil {
		return s.sendInvalidBody(conn)
	}

	texts, err := s.store.RecvTxt(session, req.Sender)
	var resp wire.RecvTxtResponse
	switch {
	case errors.Is(err, store.ErrNotLoggedIn):
		resp = wire.RecvTxtResponse{Status: wire.StatusUnauthorized}
	case errors.Is(err, store.ErrUserDoesNotExist):
		resp = wire.RecvTxtResponse{Status: wire.StatusUserDoesNotExist}
	default:
		resp = wire.RecvTxtResponse{Status: wire.StatusOK, Texts: toWireTexts(texts)}
	}
	return false, s.sendFrame(conn, wire.TypeRecvTxtResponse, resp.Marshal())
}

func (s *Server) handleCorrespondents(session store.SessionID, body []byte, conn net.Conn) (bool, error) {
	if err := wire.UnmarshalEmpty(body); err != nil {
		return s.sendInvalidBody(conn)
	}

	correspondents, err := s.store.GetCorrespondents(session)
	if err != nil {
		return false, s.sendFrame(conn, wire.TypeCorrespondentsResponse,
			wire.UsernamesResponse{Status: wire.StatusUnauthorized}.Marshal())
	}

	resp := wire.UsernamesResponse{Status: wire.StatusOK, Usernames: toByteSlices(correspondents)}
	return false, s.sendFrame(conn, wire.TypeCorrespondentsResponse, resp.Marshal())
}

func (s *Server) handleDelete(session store.SessionID, body []byte, conn net.Conn) (bool, error) {
	if err := wire.UnmarshalEmpty(body); err != nil {
		return s.sendInvalidBody(conn)
	}

	status := wire.StatusOK
	if err := s.store.DeleteUser(session); err != nil {
		status = wire.StatusUnauthorized
	}
	s.logger.Info("delete_user", zap.String("session", session.String()), zap.Uint32("status", uint32(status)))
	return false, s.sendFrame(conn, wire.TypeDeleteResponse, wire.StatusOnlyResponse{Status: status}.Marshal())
}

func toByteSlices(usernames []string) [][]byte {
	out := make([][]byte, len(usernames))
	for i, u := range usernames {
		out[i] = []byte(u)
	}
	return out
}

func toWireTexts(texts []store.Text) []wire.Text {
	out := make([]wire.Text, len(texts))
	for i, t := range texts {
		tag := wire.TagYou
		if t.Tag == store.Other {
			tag = wire.TagOther
		}
		out[i] = wire.Text{Tag: tag, Content: t.Content}
	}
	return out
}
