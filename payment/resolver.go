// Package payment turns a gateway invoice into something a human can
// pay: it picks one settlement method and derives a scannable URI.
package payment

import (
	"strings"

	escrow "github.com/Liltopzj/wealthescrow-bot"
	"github.com/Liltopzj/wealthescrow-bot/provider/btcpay"
)

const (
	onchainScheme = "bitcoin"
	instantScheme = "lightning"
)

// Resolve selects one payment method from the invoice and builds its
// URI. With preferInstant set, an instant-settlement (Lightning) method
// wins if the invoice offers one; otherwise the first method in the
// gateway's own ordering is used as-is. No re-ranking.
func Resolve(inv *btcpay.Invoice, preferInstant bool) (string, *btcpay.PaymentMethod, error) {
	methods := inv.Checkout.PaymentMethods
	if len(methods) == 0 {
		return "", nil, escrow.ErrNoPaymentMethods
	}

	var chosen *btcpay.PaymentMethod
	if preferInstant {
		for i := range methods {
			if isInstant(&methods[i]) {
				chosen = &methods[i]
				break
			}
		}
	}
	if chosen == nil {
		chosen = &methods[0]
	}
	if chosen.Destination == "" {
		return "", nil, escrow.ErrNoDestination
	}

	var uri string
	if isInstant(chosen) {
		// Amount is implicit in the settlement contract for the
		// instant family, never appended.
		uri = instantURI{Destination: chosen.Destination}.String()
	} else {
		uri = onchainURI{Address: chosen.Destination, Amount: chosen.Amount}.String()
	}
	return uri, chosen, nil
}

func isInstant(m *btcpay.PaymentMethod) bool {
	return strings.Contains(m.PaymentMethod, "Lightning")
}

// onchainURI is a BIP21-style payment URI. An empty Amount means "pay
// the invoice-stated total via the wallet UI" and produces no query
// string at all.
type onchainURI struct {
	Address string
	Amount  string
}

func (u onchainURI) String() string {
	s := onchainScheme + ":" + u.Address
	if u.Amount != "" {
		s += "?amount=" + u.Amount
	}
	return s
}

type instantURI struct {
	Destination string
}

func (u instantURI) String() string {
	return instantScheme + ":" + u.Destination
}
