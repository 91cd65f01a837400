package domain

import "time"

// PriceParams describes a recurring price to create at the processor.
type PriceParams struct {
	ProductName string
	Amount      int64
	Currency    string
	Interval    string
}

// Subscription is a processor subscription as seen by this service.
type Subscription struct {
	ID               string
	Status           string
	ClientSecret     string
	CurrentPeriodEnd time.Time
}

// PaymentIntentParams describes a one-time payment to create at the processor.
type PaymentIntentParams struct {
	CustomerID string
	Amount     int64
	Currency   string
	Metadata   map[string]string
}

// Payment intent statuses reported by the processor.
const (
	IntentSucceeded = "succeeded"
	IntentCanceled  = "canceled"
)

// PaymentIntent is a one-time payment at the processor.
type PaymentIntent struct {
	ID           string
	Status       string
	ClientSecret string
	Amount       int64
	Currency     string
	CustomerID   string
	Metadata     map[string]string
}

// Processor webhook event types handled by the payment recorder.
const (
	ProcessorInvoicePaid   = "invoice.paid"
	ProcessorInvoiceFailed = "invoice.payment_failed"
	ProcessorChargeRefund  = "charge.refunded"
)

// ProcessorEvent is a normalized webhook delivery from the processor.
type ProcessorEvent struct {
	ID             string
	Type           string
	ObjectID       string
	SubscriptionID string
	PaymentRef     string
	Amount         int64
	Currency       string
	PeriodEnd      time.Time
}
