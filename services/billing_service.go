package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"podoMarketAPI/internal/config"
	"podoMarketAPI/internal/payple"
	"podoMarketAPI/internal/types/payment"
	"podoMarketAPI/internal/types/subscription"
	"podoMarketAPI/utils"
)

type BillingService struct {
	db      *firestore.Client
	gateway *payple.Client
	mail    *MailService
	cfg     *config.Config
}

func NewBillingService(db *firestore.Client, gateway *payple.Client, mail *MailService, cfg *config.Config) *BillingService {
	return &BillingService{
		db:      db,
		gateway: gateway,
		mail:    mail,
		cfg:     cfg,
	}
}

// RunRenewalPass charges every due subscription once. One record's
// failure never aborts the rest. Overlapping passes are not mutually
// exclusive; the scheduler must not fire this concurrently or a
// subscription can be charged twice.
func (s *BillingService) RunRenewalPass(ctx context.Context) (*subscription.RenewalSummary, error) {
	now := time.Now()

	// Canceled records expire on the day before their nextBillingDate,
	// so their selection window runs a day ahead of the active one.
	queries := []firestore.Query{
		s.db.Collection("subscriptions").
			Where("status", "==", string(subscription.StatusActive)).
			Where("nextBillingDate", "<=", now),
		s.db.Collection("subscriptions").
			Where("status", "==", string(subscription.StatusCanceled)).
			Where("nextBillingDate", "<=", now.Add(24*time.Hour)),
	}

	summary := &subscription.RenewalSummary{
		Counts: make(map[subscription.Outcome]int),
	}

	for _, q := range queries {
		if err := s.renewMatching(ctx, q, now, summary); err != nil {
			return summary, err
		}
	}

	log.Printf("Renewal pass done: processed=%d counts=%v", summary.Processed, summary.Counts)
	return summary, nil
}

func (s *BillingService) renewMatching(ctx context.Context, q firestore.Query, now time.Time, summary *subscription.RenewalSummary) error {
	iter := q.Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("iterate due subscriptions: %w", err)
		}

		result := s.renewOne(ctx, snap, now)
		summary.Processed++
		summary.Counts[result.Outcome]++
		summary.Results = append(summary.Results, result)
	}
}

func (s *BillingService) renewOne(ctx context.Context, snap *firestore.DocumentSnapshot, now time.Time) (result subscription.RenewalResult) {
	var sub subscription.Subscription
	if err := snap.DataTo(&sub); err != nil {
		return subscription.RenewalResult{UserID: snap.Ref.ID, Outcome: subscription.OutcomeError, Message: err.Error()}
	}
	if sub.UserID == "" {
		sub.UserID = snap.Ref.ID
	}
	result.UserID = sub.UserID

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Renewal panic for %s: %v", sub.UserID, r)
			if err := s.applyTransition(ctx, &sub, subscription.EventChargeFailed, now); err != nil {
				log.Printf("Failed to mark %s payment_failed after panic: %v", sub.UserID, err)
			}
			result.Outcome = subscription.OutcomeError
			result.Message = fmt.Sprintf("%v", r)
		}
	}()

	switch sub.Status {
	case subscription.StatusCanceled:
		if sub.NextBillingDate != nil && subscription.ExpiresToday(*sub.NextBillingDate, now) {
			if err := s.applyTransition(ctx, &sub, subscription.EventGraceEnded, now); err != nil {
				return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeError, Message: err.Error()}
			}
			return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeExpired}
		}
		return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeCanceled, Message: "still in grace period"}

	case subscription.StatusActive:
		if sub.BillingKey == "" {
			return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeSkipped, Message: "no billing key"}
		}
		return s.charge(ctx, &sub, now)

	default:
		// Should never match the selection query.
		return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeSkipped, Message: "status " + string(sub.Status)}
	}
}

func (s *BillingService) charge(ctx context.Context, sub *subscription.Subscription, now time.Time) subscription.RenewalResult {
	paymentID := fmt.Sprintf("sub_%s_%s", sub.UserID, now.Format("20060102"))

	cred, err := s.gateway.Authenticate(ctx, payple.WorkAuth)
	if err != nil {
		return s.chargeFailed(ctx, sub, now, paymentID, resultOf(err))
	}

	res, err := s.gateway.ChargeBillingKey(ctx, cred, payple.ChargeParams{
		BillingKey: sub.BillingKey,
		OrderID:    paymentID,
		Goods:      s.cfg.Payple.GoodsName,
		Amount:     s.cfg.Payple.MonthlyPrice,
	})
	if err != nil {
		return s.chargeFailed(ctx, sub, now, paymentID, resultOf(err))
	}

	s.recordPayment(ctx, payment.Record{
		UserID:     sub.UserID,
		PaymentID:  paymentID,
		Amount:     s.cfg.Payple.MonthlyPrice,
		Method:     "billing_key",
		ResultCode: res.Code,
		Message:    res.Message,
		OK:         res.OK,
	})

	if !res.OK {
		if err := s.applyTransition(ctx, sub, subscription.EventChargeFailed, now); err != nil {
			return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeError, Message: err.Error()}
		}
		s.sendDunningMail(ctx, sub.UserID)
		return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeFailed, Message: res.Message}
	}

	if err := s.applyTransition(ctx, sub, subscription.EventChargeSucceeded, now); err != nil {
		return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeError, Message: err.Error()}
	}
	return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeRenewed}
}

// chargeFailed records the failed attempt and runs the charge_failed
// transition so the record drops out of the selection query instead of
// retrying forever in a broken state.
func (s *BillingService) chargeFailed(ctx context.Context, sub *subscription.Subscription, now time.Time, paymentID string, res payple.Result) subscription.RenewalResult {
	s.recordPayment(ctx, payment.Record{
		UserID:     sub.UserID,
		PaymentID:  paymentID,
		Amount:     s.cfg.Payple.MonthlyPrice,
		Method:     "billing_key",
		ResultCode: res.Code,
		Message:    res.Message,
		OK:         false,
	})
	if err := s.applyTransition(ctx, sub, subscription.EventChargeFailed, now); err != nil {
		return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeError, Message: err.Error()}
	}
	s.sendDunningMail(ctx, sub.UserID)
	return subscription.RenewalResult{UserID: sub.UserID, Outcome: subscription.OutcomeFailed, Message: res.Message}
}

// applyTransition moves the subscription through the state table and
// performs the writes its effects demand.
func (s *BillingService) applyTransition(ctx context.Context, sub *subscription.Subscription, event subscription.Event, now time.Time) error {
	next, effects, err := subscription.Transition(sub.Status, event)
	if err != nil {
		return err
	}

	updates := []firestore.Update{
		{Path: "status", Value: string(next)},
		{Path: "updatedAt", Value: now},
	}
	if effects.AdvanceNextBilling {
		nbd := utils.AddCalendarMonths(now, 1)
		updates = append(updates,
			firestore.Update{Path: "nextBillingDate", Value: nbd},
			firestore.Update{Path: "lastPaymentDate", Value: now},
		)
		sub.NextBillingDate = &nbd
		sub.LastPaymentDate = &now
	}
	if effects.ClearNextBilling {
		updates = append(updates, firestore.Update{Path: "nextBillingDate", Value: firestore.Delete})
		sub.NextBillingDate = nil
	}

	if _, err := s.db.Collection("subscriptions").Doc(sub.UserID).Update(ctx, updates); err != nil {
		return fmt.Errorf("update subscription %s: %w", sub.UserID, err)
	}
	sub.Status = next

	if effects.UserSubscribed != nil {
		_, err := s.db.Collection("users").Doc(sub.UserID).Set(ctx, map[string]any{
			"isSubscribed": *effects.UserSubscribed,
			"updatedAt":    now,
		}, firestore.MergeAll)
		if err != nil {
			return fmt.Errorf("update user flag %s: %w", sub.UserID, err)
		}
	}
	return nil
}

// Cancel revokes the saved billing key at the gateway and moves the
// subscription to canceled. nextBillingDate is kept so the renewal pass
// can expire it at period end; the user stays a member until then.
func (s *BillingService) Cancel(ctx context.Context, userID string) error {
	snap, err := s.db.Collection("subscriptions").Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get subscription: %w", err)
	}

	var sub subscription.Subscription
	if err := snap.DataTo(&sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	sub.UserID = userID

	if sub.Status != subscription.StatusActive {
		return ErrNotActive
	}

	cred, err := s.gateway.Authenticate(ctx, payple.WorkUserDel)
	if err != nil {
		return err
	}
	res, err := s.gateway.DeleteBillingKey(ctx, cred, sub.BillingKey)
	if err != nil {
		return err
	}
	if !res.OK {
		return &ProviderError{Result: res}
	}

	return s.applyTransition(ctx, &sub, subscription.EventCancelRequested, time.Now())
}

// GetSubscription returns the caller's subscription document.
func (s *BillingService) GetSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	snap, err := s.db.Collection("subscriptions").Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	var sub subscription.Subscription
	if err := snap.DataTo(&sub); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	sub.UserID = userID
	return &sub, nil
}

// EnrollFromCallback creates (or revives) the subscription after a
// successful billing key registration callback. The registration charge
// has already settled on the gateway side, so this only persists.
func (s *BillingService) EnrollFromCallback(ctx context.Context, userID, billingKey string, amount int, resultCode, message string) error {
	now := time.Now()
	nbd := utils.AddCalendarMonths(now, 1)

	_, err := s.db.Collection("subscriptions").Doc(userID).Set(ctx, map[string]any{
		"userId":          userID,
		"billingKey":      billingKey,
		"status":          string(subscription.StatusActive),
		"nextBillingDate": nbd,
		"lastPaymentDate": now,
		"updatedAt":       now,
	})
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	_, err = s.db.Collection("users").Doc(userID).Set(ctx, map[string]any{
		"isSubscribed": true,
		"updatedAt":    now,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("update user flag: %w", err)
	}

	s.recordPayment(ctx, payment.Record{
		UserID:     userID,
		PaymentID:  fmt.Sprintf("enroll_%s_%s", userID, now.Format("20060102150405")),
		Amount:     amount,
		Method:     "billing_key",
		ResultCode: resultCode,
		Message:    message,
		OK:         true,
	})
	return nil
}

func (s *BillingService) recordPayment(ctx context.Context, rec payment.Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Collection("users").Doc(rec.UserID).Collection("payments").Doc(rec.ID).Set(ctx, rec)
	if err != nil {
		log.Printf("Failed to write payment record for %s: %v", rec.UserID, err)
	}
}

func (s *BillingService) sendDunningMail(ctx context.Context, userID string) {
	snap, err := s.db.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		return
	}
	email, _ := snap.DataAt("email")
	addr, _ := email.(string)
	if addr == "" {
		return
	}
	if err := s.mail.SendPaymentFailed(addr); err != nil {
		log.Printf("Dunning mail to %s failed: %v", addr, err)
	}
}

// resultOf squeezes a transport or auth error into the normalized shape
// used by the audit trail.
func resultOf(err error) payple.Result {
	var authErr *payple.AuthError
	if errors.As(err, &authErr) {
		return authErr.Result
	}
	return payple.Result{Code: "ERROR", Message: err.Error()}
}
