// Package btcpay is the payment gateway client for the BTCPay
// Greenfield API. It wraps invoice creation and lookup for a single
// store; credentials are fixed at construction.
package btcpay

import (
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Liltopzj/wealthescrow-bot/provider"
)

const (
	BTCPAY provider.Provider = "btcpay"

	// DefaultTimeout bounds every gateway call. There is no separate
	// cancellation path: callers wait the timeout out.
	DefaultTimeout = 30 * time.Second
)

var (
	ErrMissingAPIKey  = errors.New("btcpay: missing API key")
	ErrMissingStoreID = errors.New("btcpay: missing store ID")
)

type Config struct {
	EntrypointURL string
	APIKey        string
	StoreID       string
	Timeout       time.Duration
}

type Provider struct {
	cfg Config
	c   *client
	l   *zap.Logger
}

// NewProvider validates credentials up front. A missing key or store is
// a construction-time failure, not a per-call one.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.StoreID == "" {
		return nil, ErrMissingStoreID
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.EntrypointURL = strings.TrimRight(cfg.EntrypointURL, "/")
	return &Provider{
		cfg: cfg,
		c:   newClient(cfg.APIKey, cfg.Timeout),
		l:   zap.L().Named("btcpay_provider"),
	}, nil
}

func (p *Provider) storeBaseURL() string {
	return p.cfg.EntrypointURL + "/api/v1/stores/" + p.cfg.StoreID
}

// CreateInvoice registers a new invoice with the gateway. escrowID is
// an opaque correlation tag carried in metadata; the gateway never
// parses it and neither do we.
//
// Creation has a real side effect on the gateway and is NOT idempotent:
// on a timeout the invoice may or may not exist. Do not retry blindly,
// a naive retry can leave two live invoices for one transaction.
func (p *Provider) CreateInvoice(
	escrowID string,
	amount decimal.Decimal,
	currency string,
	buyerEmail string,
) (*Invoice, error) {
	_url, err := url.Parse(p.storeBaseURL() + "/invoices")
	if err != nil {
		return nil, errors.Wrap(err, "Failed parse url")
	}
	in := &createInvoiceModel{
		Amount:   amount.String(),
		Currency: currency,
		Metadata: invoiceMetadataModel{
			EscrowID:   escrowID,
			BuyerEmail: buyerEmail,
		},
	}
	out := &Invoice{}
	if err := p.c.POSTAndUnmarshalJson(_url.String(), in, out); err != nil {
		p.l.Warn(
			"create invoice",
			zap.String("url", _url.String()),
			zap.String("escrow_id", escrowID),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "Failed http post request")
	}
	return out, nil
}

// GetInvoice fetches the current invoice representation.
func (p *Provider) GetInvoice(invoiceID string) (*Invoice, error) {
	_url, err := url.Parse(p.storeBaseURL() + "/invoices/" + url.PathEscape(invoiceID))
	if err != nil {
		return nil, errors.Wrap(err, "Failed parse url")
	}
	out := &Invoice{}
	if err := p.c.GETAndUnmarshalJson(_url.String(), out); err != nil {
		p.l.Warn(
			"get invoice",
			zap.String("url", _url.String()),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "Failed http get request")
	}
	return out, nil
}

// IsSettled reports whether the invoice status is Settled. Derived
// check only, it performs a fresh fetch.
func (p *Provider) IsSettled(invoiceID string) (bool, error) {
	inv, err := p.GetInvoice(invoiceID)
	if err != nil {
		return false, err
	}
	return inv.Status.Match(SETTLED), nil
}
