package subscription

import (
	"fmt"
)

// Op names a lifecycle operation applied to a subscription.
type Op string

const (
	OpCancel     Op = "cancel"
	OpReactivate Op = "reactivate"
	OpSync       Op = "sync"
	OpConfirm    Op = "confirm"
)

// lifecycleEvent triggers a transition of the local subscription state.
type lifecycleEvent string

const (
	evCancel           lifecycleEvent = "cancel"
	evReactivate       lifecycleEvent = "reactivate"
	evLapse            lifecycleEvent = "lapse"
	evPaymentFailed    lifecycleEvent = "payment_failed"
	evPaymentSucceeded lifecycleEvent = "payment_succeeded"
)

// rule describes the target of a transition. Empty status keeps the current
// one, nil flag keeps CancelAtPeriodEnd.
type rule struct {
	status Status
	flag   *bool
}

var (
	flagSet   = true
	flagClear = false
)

// transitions is indexed [from][event]. canceled is terminal: only a repeated
// lapse is accepted there.
var transitions = map[Status]map[lifecycleEvent]rule{
	StatusActive: {
		evCancel:           {flag: &flagSet},
		evReactivate:       {flag: &flagClear},
		evLapse:            {status: StatusCanceled, flag: &flagClear},
		evPaymentFailed:    {status: StatusPastDue},
		evPaymentSucceeded: {},
	},
	StatusTrialing: {
		evCancel:           {flag: &flagSet},
		evReactivate:       {flag: &flagClear},
		evLapse:            {status: StatusCanceled, flag: &flagClear},
		evPaymentFailed:    {status: StatusPastDue},
		evPaymentSucceeded: {status: StatusActive},
	},
	StatusPastDue: {
		evCancel:           {flag: &flagSet},
		evReactivate:       {flag: &flagClear},
		evLapse:            {status: StatusCanceled, flag: &flagClear},
		evPaymentFailed:    {},
		evPaymentSucceeded: {status: StatusActive},
	},
	StatusCanceled: {
		evLapse: {},
	},
}

// canFire reports whether ev is accepted from the subscription's status.
func canFire(sub *Subscription, ev lifecycleEvent) bool {
	_, ok := transitions[sub.Status][ev]
	return ok
}

// fire applies ev to sub in place.
func fire(sub *Subscription, ev lifecycleEvent) error {
	r, ok := transitions[sub.Status][ev]
	if !ok {
		if sub.Status == StatusCanceled && (ev == evCancel || ev == evReactivate) {
			return ErrAlreadyCanceled
		}
		return fmt.Errorf("%w: no transition from %q on %q", ErrInvalidTransition, sub.Status, ev)
	}
	if r.status != "" {
		sub.Status = r.status
	}
	if r.flag != nil {
		sub.CancelAtPeriodEnd = *r.flag
	}
	return nil
}
