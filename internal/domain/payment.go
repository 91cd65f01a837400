package domain

import "time"

// PaymentStatus represents the state of one payment event.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSucceeded, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// PaymentEvent triggers a payment status change.
type PaymentEvent string

const (
	PaymentEventSucceed PaymentEvent = "succeed"
	PaymentEventFail    PaymentEvent = "fail"
	PaymentEventRefund  PaymentEvent = "refund"
)

// PaymentTransition defines a valid payment status change.
type PaymentTransition struct {
	Event PaymentEvent
	Src   PaymentStatus
	Dst   PaymentStatus
}

// PaymentTransitions lists the only status changes a recorded payment may
// undergo. A failed invoice may still succeed when the processor retries it.
var PaymentTransitions = []PaymentTransition{
	{Event: PaymentEventSucceed, Src: PaymentPending, Dst: PaymentSucceeded},
	{Event: PaymentEventSucceed, Src: PaymentFailed, Dst: PaymentSucceeded},
	{Event: PaymentEventFail, Src: PaymentPending, Dst: PaymentFailed},
	{Event: PaymentEventRefund, Src: PaymentSucceeded, Dst: PaymentRefunded},
}

// PaymentEventFor returns the event that leads to status, if any.
func PaymentEventFor(status PaymentStatus) (PaymentEvent, bool) {
	switch status {
	case PaymentSucceeded:
		return PaymentEventSucceed, true
	case PaymentFailed:
		return PaymentEventFail, true
	case PaymentRefunded:
		return PaymentEventRefund, true
	}
	return "", false
}

// Payment is the record of one processor payment or invoice. ExternalRef
// identifies it uniquely; later events for the same reference move its
// status through PaymentTransitions.
type Payment struct {
	ID          string
	CampaignID  string
	PartnerID   string
	Amount      int64
	Currency    string
	Status      PaymentStatus
	ExternalRef string
	PaymentDate time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RevenueFilter bounds a revenue aggregate by payment date. Zero values are open.
type RevenueFilter struct {
	Since time.Time
	Until time.Time
}

// RevenueTotal is the sum of succeeded payments in one currency.
type RevenueTotal struct {
	Currency string
	Amount   int64
	Count    int
}
