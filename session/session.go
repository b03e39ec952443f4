// Package session coordinates one escrow transaction end to end:
// channel provisioning, role registration, invoice creation, payment
// display, settlement.
package session

import (
	"time"

	"github.com/Liltopzj/wealthescrow-bot/chat"
)

type Status string

func (s Status) Match(in Status) bool {
	return s == in
}

const (
	REQUESTED_ES         Status = "requested"
	PROVISIONED_ES       Status = "provisioned"
	INVOICE_CREATED_ES   Status = "invoice_created"
	PAYMENT_DISPLAYED_ES Status = "payment_displayed"
	SETTLED_ES           Status = "settled"
	EXPIRED_ES           Status = "expired"
	FAILED_ES            Status = "failed"
)

// Role registration is deliberately not an edge here: registering
// buyer/seller never gates invoice creation, the two flows stay
// decoupled.
var sessionStatusTransitionChart = SessionStatusTransitionChart{
	REQUESTED_ES:         {PROVISIONED_ES, FAILED_ES},
	PROVISIONED_ES:       {INVOICE_CREATED_ES, PAYMENT_DISPLAYED_ES, FAILED_ES},
	INVOICE_CREATED_ES:   {PAYMENT_DISPLAYED_ES, SETTLED_ES, EXPIRED_ES, FAILED_ES},
	PAYMENT_DISPLAYED_ES: {SETTLED_ES, EXPIRED_ES, FAILED_ES},
}

type SessionStatusTransitionChart map[Status][]Status

func (s SessionStatusTransitionChart) Allowed(from, to Status) bool {
	list, exists := s[from]
	if !exists {
		return false
	}
	for _, status := range list {
		if status.Match(to) {
			return true
		}
	}
	return false
}

// Session is the per-transaction record. Held in memory only; the
// transition chart is the single source of truth for its lifecycle.
type Session struct {
	EscrowID  string
	Status    Status
	Requester int64
	Channel   *chat.ChannelHandle
	InvoiceID string
	UpdatedAt time.Time
	CreatedAt time.Time
}
