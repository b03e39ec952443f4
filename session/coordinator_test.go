package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Liltopzj/wealthescrow-bot/chat"
	"github.com/Liltopzj/wealthescrow-bot/provider/btcpay"
	"github.com/Liltopzj/wealthescrow-bot/registry"
)

type sentMessage struct {
	ChatID int64
	Text   string
	Photo  bool
}

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	deleted []int
}

func (m *fakeMessenger) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text})
	return m.nextID, nil
}

func (m *fakeMessenger) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: caption, Photo: true})
	return m.nextID, nil
}

func (m *fakeMessenger) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *fakeMessenger) deletedIDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.deleted...)
}

type fakeGateway struct {
	createErr error
	invoices  map[string]*btcpay.Invoice
	created   []string
}

func (g *fakeGateway) CreateInvoice(escrowID string, amount decimal.Decimal, currency, buyerEmail string) (*btcpay.Invoice, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	inv := &btcpay.Invoice{
		ID:           "inv_" + escrowID[:4],
		Status:       btcpay.CREATED,
		Amount:       amount.String(),
		Currency:     currency,
		CheckoutLink: "https://pay.example/i/" + escrowID[:4],
		Checkout: btcpay.CheckoutInfo{PaymentMethods: []btcpay.PaymentMethod{
			{PaymentMethod: "BTC", Destination: "bc1qtest", Amount: "0.01"},
		}},
	}
	if g.invoices == nil {
		g.invoices = map[string]*btcpay.Invoice{}
	}
	g.invoices[inv.ID] = inv
	g.created = append(g.created, inv.ID)
	return inv, nil
}

func (g *fakeGateway) GetInvoice(invoiceID string) (*btcpay.Invoice, error) {
	inv, ok := g.invoices[invoiceID]
	if !ok {
		return nil, errors.New("invoice not found")
	}
	return inv, nil
}

func (g *fakeGateway) IsSettled(invoiceID string) (bool, error) {
	inv, err := g.GetInvoice(invoiceID)
	if err != nil {
		return false, err
	}
	return inv.Status.Match(btcpay.SETTLED), nil
}

type fakeProvisioner struct {
	err    error
	handle *chat.ChannelHandle
}

func (p *fakeProvisioner) Provision(ctx context.Context) (*chat.ChannelHandle, []chat.StepResult, error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.handle, []chat.StepResult{{Step: "invite_link"}}, nil
}

func newTestCoordinator(gw *fakeGateway, prov *fakeProvisioner, msgr *fakeMessenger) *Coordinator {
	return NewCoordinator(
		Config{ReplyTTL: 30 * time.Millisecond},
		gw, prov, registry.New(nil), msgr,
	)
}

func TestHandleCreateProvisionsAndGreets(t *testing.T) {
	msgr := &fakeMessenger{}
	prov := &fakeProvisioner{handle: &chat.ChannelHandle{
		ChatID: 42, Title: "Escrow #abcde", InviteLink: "https://t.me/+x",
	}}
	c := newTestCoordinator(&fakeGateway{}, prov, msgr)

	c.HandleCreate(context.Background(), 1000, 7)

	msgs := msgr.messages()
	require.Len(t, msgs, 4) // wait notice, link reply, group welcome, group rules
	require.Contains(t, msgs[1].Text, "Escrow #abcde")
	require.Contains(t, msgs[1].Text, "https://t.me/+x")
	require.EqualValues(t, 42, msgs[2].ChatID)

	sess, ok := c.Store().GetByChat(42)
	require.True(t, ok)
	require.Equal(t, PROVISIONED_ES, sess.Status)
}

func TestHandleCreateSurfacesProvisionErrorVerbatim(t *testing.T) {
	msgr := &fakeMessenger{}
	prov := &fakeProvisioner{err: errors.New("flood wait of 300 seconds")}
	c := newTestCoordinator(&fakeGateway{}, prov, msgr)

	c.HandleCreate(context.Background(), 1000, 7)

	msgs := msgr.messages()
	require.Len(t, msgs, 2)
	require.Contains(t, msgs[1].Text, "flood wait of 300 seconds")
}

func TestHandleRole(t *testing.T) {
	msgr := &fakeMessenger{}
	c := newTestCoordinator(&fakeGateway{}, &fakeProvisioner{}, msgr)

	c.HandleRole(context.Background(), 1000, 7, registry.SELLER, []string{"bc1qseller"})
	c.HandleRole(context.Background(), 1000, 7, registry.BUYER, []string{"bc1qbuyer"})

	p, ok := c.reg.Lookup(7)
	require.True(t, ok)
	require.Equal(t, registry.BUYER, p.Role)
	require.Equal(t, "bc1qbuyer", p.Address)

	msgs := msgr.messages()
	require.Contains(t, msgs[0].Text, "SELLER")
	require.Contains(t, msgs[1].Text, "BUYER")
}

func TestHandleRoleUsageIsNoop(t *testing.T) {
	msgr := &fakeMessenger{}
	c := newTestCoordinator(&fakeGateway{}, &fakeProvisioner{}, msgr)

	c.HandleRole(context.Background(), 1000, 7, registry.SELLER, nil)

	_, ok := c.reg.Lookup(7)
	require.False(t, ok)
	require.Contains(t, msgr.messages()[0].Text, "Usage: /seller")
}

func TestHandleInvoiceAttachesToSession(t *testing.T) {
	msgr := &fakeMessenger{}
	gw := &fakeGateway{}
	prov := &fakeProvisioner{handle: &chat.ChannelHandle{ChatID: 42, Title: "Escrow #abcde", InviteLink: "l"}}
	c := newTestCoordinator(gw, prov, msgr)

	c.HandleCreate(context.Background(), 1000, 7)
	c.HandleInvoice(context.Background(), 42, 7, []string{"12.5", "USD"})

	sess, ok := c.Store().GetByChat(42)
	require.True(t, ok)
	require.Equal(t, INVOICE_CREATED_ES, sess.Status)
	require.NotEmpty(t, sess.InvoiceID)
	require.Len(t, gw.created, 1)
}

func TestHandleInvoiceBadAmountIsUsage(t *testing.T) {
	msgr := &fakeMessenger{}
	gw := &fakeGateway{}
	c := newTestCoordinator(gw, &fakeProvisioner{}, msgr)

	c.HandleInvoice(context.Background(), 1000, 7, []string{"twelve"})
	c.HandleInvoice(context.Background(), 1000, 7, []string{"-5"})

	require.Empty(t, gw.created)
	for _, m := range msgr.messages() {
		require.Contains(t, m.Text, "Usage: /invoice")
	}
}

func TestHandlePayRepliesAndAutoDeletes(t *testing.T) {
	msgr := &fakeMessenger{}
	gw := &fakeGateway{invoices: map[string]*btcpay.Invoice{
		"inv_1": {
			ID:           "inv_1",
			Status:       btcpay.CREATED,
			CheckoutLink: "https://pay.example/i/1",
			Checkout: btcpay.CheckoutInfo{PaymentMethods: []btcpay.PaymentMethod{
				{PaymentMethod: "BTC", Destination: "bc1qtest", Amount: "0.01"},
			}},
		},
	}}
	c := newTestCoordinator(gw, &fakeProvisioner{}, msgr)

	c.HandlePay(context.Background(), 1000, 7, 555, []string{"inv_1"})

	msgs := msgr.messages()
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].Photo)
	require.Contains(t, msgs[0].Text, "bitcoin:bc1qtest?amount=0.01")
	require.Contains(t, msgs[0].Text, "https://pay.example/i/1")

	// Both the reply and the triggering command get deleted after TTL.
	require.Eventually(t, func() bool {
		return len(msgr.deletedIDs()) == 2
	}, time.Second, 10*time.Millisecond)
	require.Contains(t, msgr.deletedIDs(), 555)
}

func TestHandlePaySurfacesResolutionError(t *testing.T) {
	msgr := &fakeMessenger{}
	gw := &fakeGateway{invoices: map[string]*btcpay.Invoice{
		"inv_empty": {ID: "inv_empty", Status: btcpay.CREATED},
	}}
	c := newTestCoordinator(gw, &fakeProvisioner{}, msgr)

	c.HandlePay(context.Background(), 1000, 7, 555, []string{"inv_empty"})

	msgs := msgr.messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].Text, "no payment methods offered")
}

func TestWebhookSettlementAdvancesSessionAndNotifies(t *testing.T) {
	msgr := &fakeMessenger{}
	gw := &fakeGateway{}
	prov := &fakeProvisioner{handle: &chat.ChannelHandle{ChatID: 42, Title: "Escrow #abcde", InviteLink: "l"}}
	c := newTestCoordinator(gw, prov, msgr)

	c.HandleCreate(context.Background(), 1000, 7)
	c.HandleInvoice(context.Background(), 42, 7, []string{"12.5"})

	sess, _ := c.Store().GetByChat(42)
	c.OnWebhookEvent(btcpay.WebhookEvent{Type: btcpay.WebhookInvoiceSettled, InvoiceID: sess.InvoiceID})

	sess, _ = c.Store().GetByChat(42)
	require.Equal(t, SETTLED_ES, sess.Status)

	msgs := msgr.messages()
	last := msgs[len(msgs)-1]
	require.EqualValues(t, 42, last.ChatID)
	require.Contains(t, last.Text, "settled")
}

func TestWebhookUnknownInvoiceIsIgnored(t *testing.T) {
	msgr := &fakeMessenger{}
	c := newTestCoordinator(&fakeGateway{}, &fakeProvisioner{}, msgr)

	c.OnWebhookEvent(btcpay.WebhookEvent{Type: btcpay.WebhookInvoiceSettled, InvoiceID: "inv_ghost"})
	require.Empty(t, msgr.messages())
}

func TestHandleStatus(t *testing.T) {
	msgr := &fakeMessenger{}
	gw := &fakeGateway{invoices: map[string]*btcpay.Invoice{
		"inv_1": {ID: "inv_1", Status: btcpay.SETTLED},
		"inv_2": {ID: "inv_2", Status: btcpay.PROCESSING},
	}}
	c := newTestCoordinator(gw, &fakeProvisioner{}, msgr)

	c.HandleStatus(context.Background(), 1000, []string{"inv_1"})
	c.HandleStatus(context.Background(), 1000, []string{"inv_2"})

	msgs := msgr.messages()
	require.Contains(t, msgs[0].Text, "is settled")
	require.Contains(t, msgs[1].Text, "not settled yet")
}
