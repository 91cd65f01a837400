package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Compile-time check: Client implements domain.PaymentProcessor.
var _ domain.PaymentProcessor = (*Client)(nil)

type customer struct {
	ID string `json:"id"`
}

type price struct {
	ID string `json:"id"`
}

type paymentIntent struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Customer     string            `json:"customer"`
	Metadata     map[string]string `json:"metadata"`
}

func (pi paymentIntent) toDomain() domain.PaymentIntent {
	return domain.PaymentIntent{
		ID:           pi.ID,
		Status:       pi.Status,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     pi.Currency,
		CustomerID:   pi.Customer,
		Metadata:     pi.Metadata,
	}
}

type subscription struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	LatestInvoice    struct {
		PaymentIntent struct {
			ClientSecret string `json:"client_secret"`
		} `json:"payment_intent"`
	} `json:"latest_invoice"`
}

func (c *Client) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("name", name)

	var out customer
	if err := c.call(ctx, http.MethodPost, "/v1/customers", form, &out); err != nil {
		return "", &domain.UpstreamError{Op: "create customer", Err: err}
	}
	return out.ID, nil
}

// CreatePrice creates a recurring price together with its product.
func (c *Client) CreatePrice(ctx context.Context, params domain.PriceParams) (string, error) {
	form := url.Values{}
	form.Set("unit_amount", strconv.FormatInt(params.Amount, 10))
	form.Set("currency", params.Currency)
	form.Set("recurring[interval]", params.Interval)
	form.Set("product_data[name]", params.ProductName)

	var out price
	if err := c.call(ctx, http.MethodPost, "/v1/prices", form, &out); err != nil {
		return "", &domain.UpstreamError{Op: "create price", Err: err}
	}
	return out.ID, nil
}

// CreateSubscription starts an incomplete subscription whose first invoice
// is confirmed client-side with the returned client secret.
func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (domain.Subscription, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("items[0][price]", priceID)
	form.Set("payment_behavior", "default_incomplete")
	form.Add("expand[]", "latest_invoice.payment_intent")
	setMetadata(form, metadata)

	var out subscription
	if err := c.call(ctx, http.MethodPost, "/v1/subscriptions", form, &out); err != nil {
		return domain.Subscription{}, &domain.UpstreamError{Op: "create subscription", Err: err}
	}

	sub := domain.Subscription{
		ID:           out.ID,
		Status:       out.Status,
		ClientSecret: out.LatestInvoice.PaymentIntent.ClientSecret,
	}
	if out.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(out.CurrentPeriodEnd, 0).UTC()
	}
	return sub, nil
}

func (c *Client) CancelSubscription(ctx context.Context, id string) error {
	if err := c.call(ctx, http.MethodDelete, "/v1/subscriptions/"+url.PathEscape(id), nil, nil); err != nil {
		return &domain.UpstreamError{Op: "cancel subscription", Err: err}
	}
	return nil
}

// CancelSubscriptions cancels each subscription and collects the failures.
// One failure never stops the rest.
func (c *Client) CancelSubscriptions(ctx context.Context, ids []string) map[string]error {
	failures := make(map[string]error)
	for _, id := range ids {
		if err := c.CancelSubscription(ctx, id); err != nil {
			failures[id] = err
		}
	}
	return failures
}

func (c *Client) CreatePaymentIntent(ctx context.Context, params domain.PaymentIntentParams) (domain.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.Amount, 10))
	form.Set("currency", params.Currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	if params.CustomerID != "" {
		form.Set("customer", params.CustomerID)
	}
	setMetadata(form, params.Metadata)

	var out paymentIntent
	if err := c.call(ctx, http.MethodPost, "/v1/payment_intents", form, &out); err != nil {
		return domain.PaymentIntent{}, &domain.UpstreamError{Op: "create payment intent", Err: err}
	}
	return out.toDomain(), nil
}

// GetPaymentIntent returns domain.ErrPaymentNotFound for an unknown id.
func (c *Client) GetPaymentIntent(ctx context.Context, id string) (domain.PaymentIntent, error) {
	var out paymentIntent
	if err := c.call(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return domain.PaymentIntent{}, fmt.Errorf("payment intent %s: %w", id, domain.ErrPaymentNotFound)
		}
		return domain.PaymentIntent{}, &domain.UpstreamError{Op: "get payment intent", Err: err}
	}
	return out.toDomain(), nil
}
