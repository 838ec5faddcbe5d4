package subscription

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusActive        Status = "active"
	StatusCanceled      Status = "canceled"
	StatusPaymentFailed Status = "payment_failed"
	StatusExpired       Status = "expired"
)

// Event is something that happened to a subscription during a billing
// flow. Status only changes through Transition, so every legal move is
// visible in the table below.
type Event string

const (
	EventChargeSucceeded Event = "charge_succeeded"
	EventChargeFailed    Event = "charge_failed"
	EventCancelRequested Event = "cancel_requested"
	EventGraceEnded      Event = "grace_ended"
)

// Effects are the side writes a transition demands beside the status
// field itself. UserSubscribed is nil when the user flag is untouched.
type Effects struct {
	AdvanceNextBilling bool
	ClearNextBilling   bool
	UserSubscribed     *bool
}

type transition struct {
	to      Status
	effects Effects
}

var (
	flagOn  = true
	flagOff = false
)

var transitions = map[Status]map[Event]transition{
	StatusActive: {
		EventChargeSucceeded: {StatusActive, Effects{AdvanceNextBilling: true, UserSubscribed: &flagOn}},
		EventChargeFailed:    {StatusPaymentFailed, Effects{ClearNextBilling: true, UserSubscribed: &flagOff}},
		// nextBillingDate is kept so the grace period can run out later
		EventCancelRequested: {StatusCanceled, Effects{}},
	},
	StatusCanceled: {
		EventGraceEnded: {StatusExpired, Effects{ClearNextBilling: true, UserSubscribed: &flagOff}},
	},
}

// Transition returns the next status and its effects, or an error for a
// (status, event) pair that has no legal move.
func Transition(s Status, e Event) (Status, Effects, error) {
	t, ok := transitions[s][e]
	if !ok {
		return s, Effects{}, fmt.Errorf("illegal transition: %s on %s", e, s)
	}
	return t.to, t.effects, nil
}

type Subscription struct {
	UserID          string     `firestore:"userId" json:"userId"`
	BillingKey      string     `firestore:"billingKey" json:"-"`
	Status          Status     `firestore:"status" json:"status"`
	NextBillingDate *time.Time `firestore:"nextBillingDate" json:"nextBillingDate,omitempty"`
	LastPaymentDate *time.Time `firestore:"lastPaymentDate" json:"lastPaymentDate,omitempty"`
	UpdatedAt       time.Time  `firestore:"updatedAt" json:"updatedAt"`
}

// ExpiresToday reports whether a canceled subscription's grace period
// ends now: the day before nextBillingDate is the current calendar day.
func ExpiresToday(nextBillingDate, now time.Time) bool {
	dayBefore := nextBillingDate.AddDate(0, 0, -1)
	y1, m1, d1 := dayBefore.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Outcome of one subscription within a renewal pass.
type Outcome string

const (
	OutcomeRenewed  Outcome = "renewed"
	OutcomeFailed   Outcome = "failed"
	OutcomeError    Outcome = "error"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeExpired  Outcome = "expired"
	OutcomeCanceled Outcome = "canceled"
)

type RenewalResult struct {
	UserID  string  `json:"userId"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message,omitempty"`
}

type RenewalSummary struct {
	Processed int             `json:"processed"`
	Counts    map[Outcome]int `json:"counts"`
	Results   []RenewalResult `json:"results"`
}
