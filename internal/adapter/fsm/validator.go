package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Compile-time checks: Validator implements both transition ports.
var (
	_ domain.TransitionValidator        = (*Validator)(nil)
	_ domain.PaymentTransitionValidator = (*Validator)(nil)
)

type edge struct {
	event string
	src   string
	dst   string
}

// campaignEvents and paymentEvents convert the domain transition tables into
// looplab/fsm EventDesc format.
var (
	campaignEvents = buildEvents(campaignEdges())
	paymentEvents  = buildEvents(paymentEdges())
)

func campaignEdges() []edge {
	out := make([]edge, 0, len(domain.CampaignTransitions))
	for _, t := range domain.CampaignTransitions {
		out = append(out, edge{event: string(t.Event), src: string(t.Src), dst: string(t.Dst)})
	}
	return out
}

func paymentEdges() []edge {
	out := make([]edge, 0, len(domain.PaymentTransitions))
	for _, t := range domain.PaymentTransitions {
		out = append(out, edge{event: string(t.Event), src: string(t.Src), dst: string(t.Dst)})
	}
	return out
}

// buildEvents consolidates edges with the same event+destination into a single
// EventDesc with multiple source states (e.g., cancel from ACTIVE and PAUSED).
func buildEvents(edges []edge) []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, e := range edges {
		k := key{event: e.event, dst: e.dst}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], e.src)
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Validator checks campaign and payment transitions using looplab/fsm.
// looplab/fsm is stateful, so each call builds a short-lived machine
// initialized with the current state.
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Apply returns the campaign status reached by event from current, or a
// *domain.TransitionError if the transition is not allowed.
func (v *Validator) Apply(ctx context.Context, current domain.CampaignStatus, event domain.Event) (domain.CampaignStatus, error) {
	dst, err := fire(ctx, campaignEvents, string(current), string(event))
	if err != nil {
		return "", err
	}
	return domain.CampaignStatus(dst), nil
}

// ApplyPayment returns the payment status reached by event from current.
func (v *Validator) ApplyPayment(ctx context.Context, current domain.PaymentStatus, event domain.PaymentEvent) (domain.PaymentStatus, error) {
	dst, err := fire(ctx, paymentEvents, string(current), string(event))
	if err != nil {
		return "", err
	}
	return domain.PaymentStatus(dst), nil
}

func fire(ctx context.Context, events []loopfsm.EventDesc, current, event string) (string, error) {
	machine := loopfsm.NewFSM(current, events, nil)

	if err := machine.Event(ctx, event); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return "", &domain.TransitionError{Event: event, Current: current}
		}
		return "", err
	}

	return machine.Current(), nil
}
