// Package store implements the coarse-grained, in-memory account and chat
// store: a single mutex protects the account map, the set of historical
// usernames, and every session binding and chat map reachable from them.
// Deliberately coarse — the workload is low-rate, and one lock keeps the
// cross-account send_txt/delete_user invariants trivial to reason about.
package store

import (
	"bytes"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// SessionID is the opaque handle the dispatcher allocates to each accepted
// connection and threads through every store call. It stands in for the
// original implementation's thread-identity binding (see SPEC_FULL.md §9).
type SessionID = uuid.UUID

// NewSessionID allocates a fresh, unique session handle.
func NewSessionID() SessionID { return uuid.New() }

var (
	ErrUsernameInvalid     = errors.New("store: username invalid")
	ErrPasswordInvalid     = errors.New("store: password invalid")
	ErrUserExists          = errors.New("store: user exists")
	ErrInvalidCredentials  = errors.New("store: invalid credentials")
	ErrAlreadyLoggedIn     = errors.New("store: session already bound to an account")
	ErrNotLoggedIn         = errors.New("store: session is not bound to an account")
	ErrUserDoesNotExist    = errors.New("store: user does not exist")
)

const (
	minUsernameLen = 4
	maxUsernameLen = 40
	minPasswordLen = 4
	maxPasswordLen = 60
)

// SenderTag identifies whether a stored Text was sent ("YOU") or received
// ("OTHER") from the perspective of the chat's owner.
type SenderTag int

const (
	You SenderTag = iota
	Other
)

// Text is one entry in a chat, in the owner's own view.
type Text struct {
	Tag     SenderTag
	Content []byte
}

type account struct {
	username string
	password []byte
	chats    map[string][]Text // correspondent username -> this account's view
}

// Store is the thread-safe account/chat store.
type Store struct {
	mu         sync.Mutex
	accounts   map[string]*account
	historical map[string]struct{}
	sessions   map[SessionID]string // session -> bound username
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts:   make(map[string]*account),
		historical: make(map[string]struct{}),
		sessions:   make(map[SessionID]string),
	}
}

// Register creates a new account. It does not bind any session — the
// caller must still Login.
func (s *Store) Register(username, password []byte) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(username)
	if _, ever := s.historical[key]; ever {
		return ErrUserExists
	}

	s.accounts[key] = &account{
		username: key,
		password: append([]byte(nil), password...),
		chats:    make(map[string][]Text),
	}
	s.historical[key] = struct{}{}
	return nil
}

func validateUsername(u []byte) error {
	if len(u) < minUsernameLen || len(u) > maxUsernameLen {
		return ErrUsernameInvalid
	}
	if bytes.ContainsRune(u, '*') || bytes.ContainsRune(u, ' ') {
		return ErrUsernameInvalid
	}
	return nil
}

func validatePassword(p []byte) error {
	if len(p) < minPasswordLen || len(p) > maxPasswordLen {
		return ErrPasswordInvalid
	}
	return nil
}

// Login binds session to username if the credentials match and no other
// account is currently bound to session. Login does not re-validate
// username/password shape: any lookup or password mismatch yields
// ErrInvalidCredentials.
func (s *Store) Login(session SessionID, username, password []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, bound := s.sessions[session]; bound {
		return ErrAlreadyLoggedIn
	}

	acct, ok := s.accounts[string(username)]
	if !ok || !bytes.Equal(acct.password, password) {
		return ErrInvalidCredentials
	}
	s.sessions[session] = acct.username
	return nil
}

// Logout unbinds session. Returns ErrNotLoggedIn if session has no binding.
func (s *Store) Logout(session SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, bound := s.sessions[session]; !bound {
		return ErrNotLoggedIn
	}
	delete(s.sessions, session)
	return nil
}

// Disconnect unbinds session without error, for use when a connection
// terminates and the caller doesn't care whether a binding existed.
func (s *Store) Disconnect(session SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session)
}

// IsLoggedIn reports whether session is currently bound to an account.
func (s *Store) IsLoggedIn(session SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, bound := s.sessions[session]
	return bound
}

// GetUsernames returns every username matching pattern under the
// wildcard rule of SPEC_FULL.md §4.4.1, in map iteration order (no
// ordering is promised at the protocol level).
func (s *Store) GetUsernames(session SessionID, pattern []byte) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, bound := s.sessions[session]; !bound {
		return nil, ErrNotLoggedIn
	}

	var out []string
	for username := range s.accounts {
		if wildcardMatch(pattern, []byte(username)) {
			out = append(out, username)
		}
	}
	return out, nil
}

// SendTxt appends text to the caller's view of the chat with to, and to
// the recipient's view of the chat with the caller. When caller and to
// are the same account, both copies land in the same chat slice, in
// order YOU then OTHER, because both views are the same map entry.
func (s *Store) SendTxt(session SessionID, to []byte, text []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, bound := s.sessions[session]
	if !bound {
		return ErrNotLoggedIn
	}
	recipient, ok := s.accounts[string(to)]
	if !ok {
		return ErrUserDoesNotExist
	}
	senderAcct := s.accounts[sender]

	content := append([]byte(nil), text...)
	senderAcct.chats[recipient.username] = append(senderAcct.chats[recipient.username], Text{Tag: You, Content: content})
	recipient.chats[sender] = append(recipient.chats[sender], Text{Tag: Other, Content: append([]byte(nil), text...)})
	return nil
}

// RecvTxt returns the caller's view of the chat with from, empty if no
// such chat exists yet.
func (s *Store) RecvTxt(session SessionID, from []byte) ([]Text, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller, bound := s.sessions[session]
	if !bound {
		return nil, ErrNotLoggedIn
	}
	if _, ok := s.accounts[string(from)]; !ok {
		return nil, ErrUserDoesNotExist
	}

	chat := s.accounts[caller].chats[string(from)]
	out := make([]Text, len(chat))
	copy(out, chat)
	return out, nil
}

// GetCorrespondents returns the keys of the caller's chats map.
func (s *Store) GetCorrespondents(session SessionID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller, bound := s.sessions[session]
	if !bound {
		return nil, ErrNotLoggedIn
	}
	acct := s.accounts[caller]
	out := make([]string, 0, len(acct.chats))
	for correspondent := range acct.chats {
		out = append(out, correspondent)
	}
	return out, nil
}

// DeleteUser removes the caller's account, scrubs it from every
// correspondent's chats, and invalidates every session bound to it
// (not just the caller's). The username remains reserved in historical
// usernames forever.
func (s *Store) DeleteUser(session SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, bound := s.sessions[session]
	if !bound {
		return ErrNotLoggedIn
	}

	acct := s.accounts[username]
	for correspondent := range acct.chats {
		if correspondent == username {
			continue // self-chat disappears along with the account below
		}
		if other, ok := s.accounts[correspondent]; ok {
			delete(other.chats, username)
		}
	}
	delete(s.accounts, username)

	for sid, bound := range s.sessions {
		if bound == username {
			delete(s.sessions, sid)
		}
	}
	return nil
}
