// Package registry maps a participant identity to their declared
// escrow role and payout address. Lifetime of the default store is the
// process; durability can be added by swapping the Store.
package registry

import (
	"sync"

	"go.uber.org/zap"
)

type Role string

const (
	BUYER  Role = "buyer"
	SELLER Role = "seller"
)

// Participant is the full registration record. Role and address always
// change together; a partial update is not a valid state.
type Participant struct {
	UserID  int64
	Role    Role
	Address string
}

// Store is the persistence seam. Implementations must apply Put as one
// atomic record write per identity.
type Store interface {
	Put(p Participant) error
	Get(userID int64) (Participant, bool, error)
}

// MemoryStore is the default in-process Store. A single lock covers
// the read-modify-write of a record, so concurrent registrations for
// the same identity race last-write-wins without field mixing.
type MemoryStore struct {
	mu sync.Mutex
	m  map[int64]Participant
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[int64]Participant)}
}

func (s *MemoryStore) Put(p Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.UserID] = p
	return nil
}

func (s *MemoryStore) Get(userID int64) (Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[userID]
	return p, ok, nil
}

type Registry struct {
	s Store
	l *zap.Logger
}

func New(s Store) *Registry {
	if s == nil {
		s = NewMemoryStore()
	}
	return &Registry{
		s: s,
		l: zap.L().Named("role_registry"),
	}
}

// Register unconditionally upserts the record. The address is a
// free-form string; validation is the counterparties' problem.
func (r *Registry) Register(userID int64, role Role, address string) error {
	err := r.s.Put(Participant{UserID: userID, Role: role, Address: address})
	if err != nil {
		r.l.Warn(
			"register participant",
			zap.Int64("user_id", userID),
			zap.String("role", string(role)),
			zap.Error(err),
		)
		return err
	}
	r.l.Debug(
		"registered participant",
		zap.Int64("user_id", userID),
		zap.String("role", string(role)),
	)
	return nil
}

// Lookup returns the record for the identity. An unknown identity is a
// valid absent result, not an error.
func (r *Registry) Lookup(userID int64) (Participant, bool) {
	p, ok, err := r.s.Get(userID)
	if err != nil {
		r.l.Warn("lookup participant", zap.Int64("user_id", userID), zap.Error(err))
		return Participant{}, false
	}
	return p, ok
}
