package btcpay

// InvoiceStatus is gateway-defined. The constants below cover the
// statuses BTCPay documents today, but the set is open: compare against
// values, never assume exhaustiveness.
type InvoiceStatus string

func (s InvoiceStatus) Match(in InvoiceStatus) bool {
	return s == in
}

const (
	CREATED    InvoiceStatus = "Created"
	PROCESSING InvoiceStatus = "Processing"
	SETTLED    InvoiceStatus = "Settled"
	EXPIRED    InvoiceStatus = "Expired"
	INVALID    InvoiceStatus = "Invalid"
)

// Invoice is the Greenfield invoice representation. Only the gateway
// transitions Status; callers treat the whole object as read-only.
type Invoice struct {
	ID           string                 `json:"id"`
	Status       InvoiceStatus          `json:"status"`
	Amount       string                 `json:"amount"`
	Currency     string                 `json:"currency"`
	CheckoutLink string                 `json:"checkoutLink"`
	Checkout     CheckoutInfo           `json:"checkout"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type CheckoutInfo struct {
	PaymentMethods []PaymentMethod `json:"paymentMethods"`
}

// PaymentMethod is one concrete way to settle the invoice. Amount may
// be empty, meaning "pay the invoice-stated total".
type PaymentMethod struct {
	PaymentMethod string `json:"paymentMethod"`
	Destination   string `json:"destination"`
	Amount        string `json:"amount"`
}

type createInvoiceModel struct {
	Amount   string               `json:"amount"`
	Currency string               `json:"currency"`
	Metadata invoiceMetadataModel `json:"metadata"`
}

type invoiceMetadataModel struct {
	EscrowID   string `json:"escrow_id"`
	BuyerEmail string `json:"buyerEmail,omitempty"`
}

// WebhookEvent is a Greenfield webhook delivery payload.
type WebhookEvent struct {
	DeliveryID string `json:"deliveryId"`
	WebhookID  string `json:"webhookId"`
	Type       string `json:"type"`
	StoreID    string `json:"storeId"`
	InvoiceID  string `json:"invoiceId"`
	Timestamp  int64  `json:"timestamp"`
}

const (
	WebhookInvoiceSettled = "InvoiceSettled"
	WebhookInvoiceExpired = "InvoiceExpired"
	WebhookInvoiceInvalid = "InvoiceInvalid"
)
