package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Liltopzj/wealthescrow-bot/chat"
	"github.com/Liltopzj/wealthescrow-bot/payment"
	"github.com/Liltopzj/wealthescrow-bot/provider/btcpay"
	"github.com/Liltopzj/wealthescrow-bot/registry"
)

// Messenger is the bot identity's messaging surface inside channels.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Gateway is the invoice surface of the payment processor.
type Gateway interface {
	CreateInvoice(escrowID string, amount decimal.Decimal, currency, buyerEmail string) (*btcpay.Invoice, error)
	GetInvoice(invoiceID string) (*btcpay.Invoice, error)
	IsSettled(invoiceID string) (bool, error)
}

// Provisioner creates the isolated escrow group.
type Provisioner interface {
	Provision(ctx context.Context) (*chat.ChannelHandle, []chat.StepResult, error)
}

type Config struct {
	// ReplyTTL is how long a payment-display reply (and the command
	// that triggered it) stays visible before auto-deletion.
	ReplyTTL time.Duration

	// DefaultCurrency for /invoice when the caller names none.
	DefaultCurrency string
}

// Coordinator drives the escrow flow off inbound commands. Errors are
// surfaced to the requester verbatim: transparency over polish, at the
// cost of leaking backend detail.
type Coordinator struct {
	cfg  Config
	gw   Gateway
	prov Provisioner
	reg  *registry.Registry
	msgr Messenger
	st   *Store
	l    *zap.Logger
}

func NewCoordinator(cfg Config, gw Gateway, prov Provisioner, reg *registry.Registry, msgr Messenger) *Coordinator {
	if cfg.ReplyTTL == 0 {
		cfg.ReplyTTL = 60 * time.Second
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	return &Coordinator{
		cfg:  cfg,
		gw:   gw,
		prov: prov,
		reg:  reg,
		msgr: msgr,
		st:   NewStore(),
		l:    zap.L().Named("session_coordinator"),
	}
}

// Store exposes the session records, read-only use intended.
func (c *Coordinator) Store() *Store { return c.st }

// HandleCreate provisions a fresh escrow group for the requester.
func (c *Coordinator) HandleCreate(ctx context.Context, origin, requester int64) {
	c.say(ctx, origin, "Creating Escrow Group. Please Wait...")

	sess := c.st.Create(uuid.NewString(), requester)
	handle, steps, err := c.prov.Provision(ctx)
	if err != nil {
		commandsTotal.WithLabelValues("create", "error").Inc()
		if _, terr := c.st.Transition(sess.EscrowID, FAILED_ES, nil); terr != nil {
			c.l.Warn("mark session failed", zap.Error(terr))
		}
		c.say(ctx, origin, fmt.Sprintf("❌ Error creating group: %v", err))
		return
	}
	for _, s := range steps {
		if s.Err != nil {
			c.l.Info(
				"best-effort provisioning step failed",
				zap.String("step", s.Step),
				zap.Bool("best_effort", s.BestEffort),
				zap.Error(s.Err),
			)
		}
	}

	if _, err := c.st.Transition(sess.EscrowID, PROVISIONED_ES, func(s *Session) {
		s.Channel = handle
	}); err != nil {
		c.l.Warn("transition to provisioned", zap.Error(err))
	}
	channelsProvisioned.Inc()
	commandsTotal.WithLabelValues("create", "ok").Inc()

	c.say(ctx, origin, fmt.Sprintf(
		"✅ Created Escrow Group <b>%s</b>\n\n"+
			"🔗 Group Link: %s\n\n"+
			"Now join this escrow group & forward this message to buyer/seller.\n\n"+
			"Enjoy Safe Escrow 🍻",
		handle.Title, handle.InviteLink,
	))

	// Greetings inside the new group. Lands only if the bot made it in;
	// failures here never undo the provisioning.
	c.say(ctx, handle.ChatID, fmt.Sprintf(
		"👋 Welcome to <b>%s</b>!\n\n"+
			"This group has been created for your escrow transaction. "+
			"Please follow the guidelines below carefully.", handle.Title,
	))
	c.say(ctx, handle.ChatID,
		"⚖️ <b>Important Notice</b> ⚖️\n\n"+
			"Escrow groups are only for depositing and releasing payments. "+
			"All product discussions and deliveries should be handled privately in DMs.",
	)
}

// HandleRole registers the sender in the given role. Role and address
// land as one unit, last registration fully wins.
func (c *Coordinator) HandleRole(ctx context.Context, origin, sender int64, role registry.Role, args []string) {
	name := string(role)
	if len(args) < 1 {
		commandsTotal.WithLabelValues(name, "usage").Inc()
		c.say(ctx, origin, fmt.Sprintf("⚠️ Usage: /%s <WALLET_ADDRESS>", name))
		return
	}
	wallet := args[0]
	if err := c.reg.Register(sender, role, wallet); err != nil {
		commandsTotal.WithLabelValues(name, "error").Inc()
		c.say(ctx, origin, fmt.Sprintf("❌ Error: %v", err))
		return
	}
	commandsTotal.WithLabelValues(name, "ok").Inc()

	label := "SELLER"
	if role == registry.BUYER {
		label = "BUYER"
	}
	c.say(ctx, origin, fmt.Sprintf(
		"✅ You are now registered as a <b>%s</b>.\nWallet: <code>%s</code>", label, wallet,
	))
}

// HandleInvoice creates a gateway invoice. Deliberately not gated on
// both roles being registered: the flows are decoupled.
func (c *Coordinator) HandleInvoice(ctx context.Context, origin, sender int64, args []string) {
	if len(args) < 1 {
		commandsTotal.WithLabelValues("invoice", "usage").Inc()
		c.say(ctx, origin, "⚠️ Usage: /invoice <amount> [currency]")
		return
	}
	amount, err := decimal.NewFromString(args[0])
	if err != nil || amount.IsNegative() {
		commandsTotal.WithLabelValues("invoice", "usage").Inc()
		c.say(ctx, origin, "⚠️ Usage: /invoice <amount> [currency]")
		return
	}
	currency := c.cfg.DefaultCurrency
	if len(args) > 1 {
		currency = args[1]
	}

	escrowID := uuid.NewString()
	if sess, ok := c.st.GetByChat(origin); ok {
		escrowID = sess.EscrowID
	}

	inv, err := c.gw.CreateInvoice(escrowID, amount, currency, "")
	if err != nil {
		commandsTotal.WithLabelValues("invoice", "error").Inc()
		c.say(ctx, origin, fmt.Sprintf("❌ Error: %v", err))
		return
	}
	invoicesCreated.Inc()
	commandsTotal.WithLabelValues("invoice", "ok").Inc()

	if _, ok := c.st.Get(escrowID); ok {
		if _, err := c.st.Transition(escrowID, INVOICE_CREATED_ES, func(s *Session) {
			s.InvoiceID = inv.ID
		}); err != nil {
			c.l.Warn("transition to invoice_created", zap.Error(err))
		}
	}

	c.say(ctx, origin, fmt.Sprintf(
		"🧾 Invoice created.\nID: <code>%s</code>\nAmount: %s %s\n\nPay here: %s\n\nUse /pay %s to get a QR code.",
		inv.ID, inv.Amount, inv.Currency, inv.CheckoutLink, inv.ID,
	))
}

// HandlePay fetches the invoice, resolves a payment target, renders
// the QR and replies with it. The reply and the triggering command are
// deleted after the configured TTL so payment detail does not linger
// in a shared channel.
func (c *Coordinator) HandlePay(ctx context.Context, origin, sender int64, commandMsgID int, args []string) {
	if len(args) < 1 {
		commandsTotal.WithLabelValues("pay", "usage").Inc()
		c.say(ctx, origin, "⚠️ Usage: /pay <invoice_id>")
		return
	}
	invoiceID := args[0]

	inv, err := c.gw.GetInvoice(invoiceID)
	if err != nil {
		commandsTotal.WithLabelValues("pay", "error").Inc()
		c.say(ctx, origin, fmt.Sprintf("❌ Error: %v", err))
		return
	}
	uri, _, err := payment.Resolve(inv, false)
	if err != nil {
		commandsTotal.WithLabelValues("pay", "error").Inc()
		c.say(ctx, origin, fmt.Sprintf("❌ Error: %v", err))
		return
	}
	png, err := payment.RenderQR(uri)
	if err != nil {
		commandsTotal.WithLabelValues("pay", "error").Inc()
		c.say(ctx, origin, fmt.Sprintf("❌ Error: %v", err))
		return
	}

	caption := fmt.Sprintf(
		"💳 <b>Invoice Payment</b>\nID: <code>%s</code>\n\n"+
			"👉 URI: <code>%s</code>\n\n"+
			"Pay here: %s\n\n"+
			"(This message will auto-delete in %ds)",
		invoiceID, uri, inv.CheckoutLink, int(c.cfg.ReplyTTL.Seconds()),
	)
	msgID, err := c.msgr.SendPhoto(ctx, origin, png, caption)
	if err != nil {
		commandsTotal.WithLabelValues("pay", "error").Inc()
		c.l.Warn("send payment photo", zap.Int64("chat_id", origin), zap.Error(err))
		return
	}
	commandsTotal.WithLabelValues("pay", "ok").Inc()

	c.scheduleDelete(origin, msgID)
	c.scheduleDelete(origin, commandMsgID)

	if sess, ok := c.st.GetByInvoice(invoiceID); ok {
		if _, err := c.st.Transition(sess.EscrowID, PAYMENT_DISPLAYED_ES, nil); err != nil {
			c.l.Warn("transition to payment_displayed", zap.Error(err))
		}
	}
}

// HandleStatus is the on-demand settlement check.
func (c *Coordinator) HandleStatus(ctx context.Context, origin int64, args []string) {
	if len(args) < 1 {
		commandsTotal.WithLabelValues("status", "usage").Inc()
		c.say(ctx, origin, "⚠️ Usage: /status <invoice_id>")
		return
	}
	settled, err := c.gw.IsSettled(args[0])
	if err != nil {
		commandsTotal.WithLabelValues("status", "error").Inc()
		c.say(ctx, origin, fmt.Sprintf("❌ Error: %v", err))
		return
	}
	commandsTotal.WithLabelValues("status", "ok").Inc()
	if settled {
		c.say(ctx, origin, fmt.Sprintf("✅ Invoice <code>%s</code> is settled.", args[0]))
	} else {
		c.say(ctx, origin, fmt.Sprintf("⏳ Invoice <code>%s</code> is not settled yet.", args[0]))
	}
}

// OnWebhookEvent advances the session for terminal invoice events and
// notifies the escrow channel.
func (c *Coordinator) OnWebhookEvent(ev btcpay.WebhookEvent) {
	var to Status
	var text string
	switch ev.Type {
	case btcpay.WebhookInvoiceSettled:
		to = SETTLED_ES
		text = fmt.Sprintf("✅ Invoice <code>%s</code> settled. Funds are secured in escrow.", ev.InvoiceID)
	case btcpay.WebhookInvoiceExpired, btcpay.WebhookInvoiceInvalid:
		to = EXPIRED_ES
		text = fmt.Sprintf("⌛ Invoice <code>%s</code> expired without settling.", ev.InvoiceID)
	default:
		return
	}

	sess, ok := c.st.GetByInvoice(ev.InvoiceID)
	if !ok {
		c.l.Debug("webhook for unknown invoice", zap.String("invoice_id", ev.InvoiceID))
		return
	}
	if _, err := c.st.Transition(sess.EscrowID, to, nil); err != nil {
		c.l.Warn("transition from webhook", zap.String("invoice_id", ev.InvoiceID), zap.Error(err))
		return
	}
	settlements.WithLabelValues(string(to)).Inc()
	if sess.Channel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.say(ctx, sess.Channel.ChatID, text)
	}
}

func (c *Coordinator) say(ctx context.Context, chatID int64, text string) {
	if _, err := c.msgr.SendMessage(ctx, chatID, text); err != nil {
		c.l.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (c *Coordinator) scheduleDelete(chatID int64, messageID int) {
	time.AfterFunc(c.cfg.ReplyTTL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.msgr.DeleteMessage(ctx, chatID, messageID); err != nil {
			c.l.Warn(
				"auto-delete message",
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", messageID),
				zap.Error(err),
			)
		}
	})
}
