package session

import (
	"sync"
	"time"

	escrow "github.com/Liltopzj/wealthescrow-bot"
)

// Store keeps sessions in process memory, indexed by escrow id, by the
// provisioned chat, and by the created invoice. One lock covers every
// read-modify-write; cross-session operations never contend for long.
type Store struct {
	mu        sync.Mutex
	byEscrow  map[string]*Session
	byChat    map[int64]string
	byInvoice map[string]string
}

func NewStore() *Store {
	return &Store{
		byEscrow:  make(map[string]*Session),
		byChat:    make(map[int64]string),
		byInvoice: make(map[string]string),
	}
}

func (s *Store) Create(escrowID string, requester int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	sess := &Session{
		EscrowID:  escrowID,
		Status:    REQUESTED_ES,
		Requester: requester,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byEscrow[escrowID] = sess
	return s.copyLocked(sess)
}

func (s *Store) Get(escrowID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byEscrow[escrowID]
	if !ok {
		return nil, false
	}
	return s.copyLocked(sess), true
}

func (s *Store) GetByChat(chatID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byChat[chatID]
	if !ok {
		return nil, false
	}
	return s.copyLocked(s.byEscrow[id]), true
}

func (s *Store) GetByInvoice(invoiceID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byInvoice[invoiceID]
	if !ok {
		return nil, false
	}
	return s.copyLocked(s.byEscrow[id]), true
}

// Transition moves the session to a new status, applying mutate under
// the lock. Disallowed transitions are rejected so the chart stays the
// single source of truth.
func (s *Store) Transition(escrowID string, to Status, mutate func(*Session)) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byEscrow[escrowID]
	if !ok {
		return nil, escrow.ErrNotFound
	}
	if !sessionStatusTransitionChart.Allowed(sess.Status, to) {
		return nil, &TransitionError{From: sess.Status, To: to}
	}
	if mutate != nil {
		mutate(sess)
	}
	sess.Status = to
	sess.UpdatedAt = time.Now()
	if sess.Channel != nil {
		s.byChat[sess.Channel.ChatID] = sess.EscrowID
	}
	if sess.InvoiceID != "" {
		s.byInvoice[sess.InvoiceID] = sess.EscrowID
	}
	return s.copyLocked(sess), nil
}

func (s *Store) copyLocked(sess *Session) *Session {
	cp := *sess
	if sess.Channel != nil {
		ch := *sess.Channel
		cp.Channel = &ch
	}
	return &cp
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return "transition not allowed: " + string(e.From) + " -> " + string(e.To)
}
