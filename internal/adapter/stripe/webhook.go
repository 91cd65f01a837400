package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// SignatureHeader is the header carrying the webhook signature.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is the maximum age of a signed webhook delivery.
const DefaultTolerance = 5 * time.Minute

// Webhooks verifies and decodes processor webhook deliveries.
type Webhooks struct {
	secret    []byte
	tolerance time.Duration
	nowFn     func() time.Time
}

// NewWebhooks creates a verifier for the endpoint signing secret.
func NewWebhooks(secret string) *Webhooks {
	return &Webhooks{secret: []byte(secret), tolerance: DefaultTolerance, nowFn: time.Now}
}

// WithClock replaces the verifier's time source.
func (w *Webhooks) WithClock(now func() time.Time) *Webhooks {
	w.nowFn = now
	return w
}

// Sign returns a signature header value for payload at ts. Used to sign
// test deliveries.
func (w *Webhooks) Sign(payload []byte, ts time.Time) string {
	unix := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + unix + ",v1=" + w.mac(unix, payload)
}

func (w *Webhooks) mac(unix string, payload []byte) string {
	m := hmac.New(sha256.New, w.secret)
	m.Write([]byte(unix))
	m.Write([]byte("."))
	m.Write(payload)
	return hex.EncodeToString(m.Sum(nil))
}

// Parse verifies the signature header and decodes the event. Any
// verification failure is reported as domain.ErrInvalidSignature.
func (w *Webhooks) Parse(payload []byte, header string) (domain.ProcessorEvent, error) {
	if err := w.verify(payload, header); err != nil {
		return domain.ProcessorEvent{}, err
	}

	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.ProcessorEvent{}, domain.NewValidationError("body", "malformed event")
	}

	event := domain.ProcessorEvent{ID: raw.ID, Type: raw.Type}

	switch raw.Type {
	case domain.ProcessorInvoicePaid, domain.ProcessorInvoiceFailed:
		var inv struct {
			ID           string `json:"id"`
			Subscription string `json:"subscription"`
			AmountPaid   int64  `json:"amount_paid"`
			AmountDue    int64  `json:"amount_due"`
			Currency     string `json:"currency"`
			Lines        struct {
				Data []struct {
					Period struct {
						End int64 `json:"end"`
					} `json:"period"`
				} `json:"data"`
			} `json:"lines"`
		}
		if err := json.Unmarshal(raw.Data.Object, &inv); err != nil {
			return domain.ProcessorEvent{}, domain.NewValidationError("body", "malformed invoice")
		}
		event.ObjectID = inv.ID
		event.SubscriptionID = inv.Subscription
		event.Currency = inv.Currency
		event.Amount = inv.AmountDue
		if raw.Type == domain.ProcessorInvoicePaid {
			event.Amount = inv.AmountPaid
		}
		if len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Period.End > 0 {
			event.PeriodEnd = time.Unix(inv.Lines.Data[0].Period.End, 0).UTC()
		}

	case domain.ProcessorChargeRefund:
		var ch struct {
			ID            string `json:"id"`
			Invoice       string `json:"invoice"`
			PaymentIntent string `json:"payment_intent"`
		}
		if err := json.Unmarshal(raw.Data.Object, &ch); err != nil {
			return domain.ProcessorEvent{}, domain.NewValidationError("body", "malformed charge")
		}
		event.ObjectID = ch.ID
		// Payments are keyed by invoice for subscriptions and by intent
		// for one-time gifts.
		event.PaymentRef = ch.Invoice
		if event.PaymentRef == "" {
			event.PaymentRef = ch.PaymentIntent
		}
	}

	return event, nil
}

func (w *Webhooks) verify(payload []byte, header string) error {
	var unix string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			unix = v
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if unix == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed header", domain.ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(unix, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", domain.ErrInvalidSignature)
	}
	if age := w.nowFn().Sub(time.Unix(ts, 0)); age > w.tolerance || age < -w.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", domain.ErrInvalidSignature)
	}

	expected := []byte(w.mac(unix, payload))
	for _, sig := range signatures {
		if hmac.Equal(expected, []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", domain.ErrInvalidSignature)
}
