package btcpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "escrow_btcpay_webhook_deliveries_total",
	Help: "BTCPay webhook deliveries by event type and outcome.",
}, []string{"type", "outcome"})

// WebhookHandler verifies and decodes Greenfield webhook deliveries,
// passing each valid event to notify. An empty secret disables the
// BTCPay-Sig check (local testing only).
func (p *Provider) WebhookHandler(secret string, notify func(WebhookEvent)) echo.HandlerFunc {
	l := p.l.Named("webhook")
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			webhookDeliveries.WithLabelValues("unknown", "read_error").Inc()
			return errors.Wrap(err, "Failed read webhook body")
		}
		if secret != "" {
			sig := c.Request().Header.Get("BTCPay-Sig")
			if !validSignature(secret, sig, body) {
				l.Warn("webhook signature mismatch", zap.String("sig", sig))
				webhookDeliveries.WithLabelValues("unknown", "bad_signature").Inc()
				return c.NoContent(http.StatusUnauthorized)
			}
		}
		var ev WebhookEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			l.Warn("webhook bad payload", zap.Error(err))
			webhookDeliveries.WithLabelValues("unknown", "bad_payload").Inc()
			return c.NoContent(http.StatusBadRequest)
		}
		if ev.StoreID != "" && ev.StoreID != p.cfg.StoreID {
			l.Warn(
				"webhook for foreign store",
				zap.String("store_id", ev.StoreID),
			)
			webhookDeliveries.WithLabelValues(ev.Type, "foreign_store").Inc()
			return c.NoContent(http.StatusOK)
		}
		l.Debug(
			"webhook delivery",
			zap.String("type", ev.Type),
			zap.String("invoice_id", ev.InvoiceID),
			zap.String("delivery_id", ev.DeliveryID),
		)
		webhookDeliveries.WithLabelValues(ev.Type, "ok").Inc()
		notify(ev)
		return c.NoContent(http.StatusOK)
	}
}

// validSignature checks the BTCPay-Sig header, "sha256=<hex hmac>".
func validSignature(secret, header string, body []byte) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
