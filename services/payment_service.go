package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"podoMarketAPI/internal/payple"
	"podoMarketAPI/internal/types/payment"
)

type PaymentService struct {
	db       *firestore.Client
	gateway  *payple.Client
	receipts *ReceiptService
}

func NewPaymentService(db *firestore.Client, gateway *payple.Client, receipts *ReceiptService) *PaymentService {
	return &PaymentService{
		db:       db,
		gateway:  gateway,
		receipts: receipts,
	}
}

// PassCallback is the parsed inbound payment-result callback. Field
// names follow the gateway's PCD_ wire fields; the handler does the
// form/JSON extraction.
type PassCallback struct {
	UserID     string // PCD_PAYER_NO
	PaymentID  string // PCD_PAY_OID
	Result     string // PCD_PAY_RST
	Message    string // PCD_PAY_MSG
	AuthKey    string // PCD_AUTH_KEY
	ReqKey     string // PCD_PAY_REQKEY
	ConfirmURL string // PCD_PAY_COFURL
	BillingKey string // PCD_PAYER_ID
	Amount     int    // PCD_PAY_TOTAL
	CardName   string // PCD_PAY_CARDNAME
	CardNumber string // PCD_PAY_CARDNUM
	PayerName  string // PCD_PAYER_NAME
	PayerPhone string // PCD_PAYER_HP
}

// ConfirmPass resolves the staged pending order for an inbound Pass
// callback: confirms the payment with the gateway on client-side
// success, records the outcome either way. Receipt issuance is
// best-effort and never fails the payment.
func (s *PaymentService) ConfirmPass(ctx context.Context, cb PassCallback) (payment.PendingStatus, error) {
	ref, pending, err := s.findPendingOrder(ctx, cb.UserID, cb.PaymentID)
	if err != nil {
		return "", err
	}

	now := time.Now()

	if !strings.EqualFold(cb.Result, "success") {
		if err := s.setPendingStatus(ctx, ref, payment.PendingStatusFailed, now); err != nil {
			return "", err
		}
		return payment.PendingStatusFailed, nil
	}

	res, err := s.gateway.ConfirmPayment(ctx, payple.ConfirmParams{
		ConfirmURL: cb.ConfirmURL,
		AuthKey:    cb.AuthKey,
		ReqKey:     cb.ReqKey,
		BillingKey: cb.BillingKey,
	})
	if err != nil {
		log.Printf("Pass confirm call failed for %s/%s: %v", cb.UserID, cb.PaymentID, err)
		if err := s.setPendingStatus(ctx, ref, payment.PendingStatusFailed, now); err != nil {
			return "", err
		}
		return payment.PendingStatusFailed, nil
	}

	if !res.OK {
		if err := s.setPendingStatus(ctx, ref, payment.PendingStatusFailed, now); err != nil {
			return "", err
		}
		s.recordPayment(ctx, cb, res, false)
		return payment.PendingStatusFailed, nil
	}

	if err := s.setPendingStatus(ctx, ref, payment.PendingStatusSuccess, now); err != nil {
		return "", err
	}

	amount := cb.Amount
	if amount == 0 {
		amount = pending.Amount
	}
	cb.Amount = amount

	receiptIssued := false
	if issueErr := s.receipts.Issue(ctx, ReceiptParams{
		PaymentID:  cb.PaymentID,
		Amount:     amount,
		BuyerName:  cb.PayerName,
		BuyerPhone: cb.PayerPhone,
		TradeDate:  now,
	}); issueErr != nil {
		log.Printf("Receipt issuance failed for %s: %v", cb.PaymentID, issueErr)
	} else {
		receiptIssued = true
	}

	s.recordPayment(ctx, cb, res, receiptIssued)
	s.upsertCardDisplay(ctx, cb, now)

	return payment.PendingStatusSuccess, nil
}

// StagePendingOrder creates the staging record the client registers
// before launching the gateway's payment window.
func (s *PaymentService) StagePendingOrder(ctx context.Context, userID, paymentID, goods string, amount int) (*payment.PendingOrder, error) {
	now := time.Now()
	pending := &payment.PendingOrder{
		ID:        userID + "_" + paymentID,
		UserID:    userID,
		PaymentID: paymentID,
		Amount:    amount,
		Goods:     goods,
		Status:    payment.PendingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.Collection("pending_orders").Doc(pending.ID).Set(ctx, pending); err != nil {
		return nil, fmt.Errorf("create pending order: %w", err)
	}
	return pending, nil
}

func (s *PaymentService) findPendingOrder(ctx context.Context, userID, paymentID string) (*firestore.DocumentRef, *payment.PendingOrder, error) {
	iter := s.db.Collection("pending_orders").
		Where("userId", "==", userID).
		Where("paymentId", "==", paymentID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query pending order: %w", err)
	}

	var pending payment.PendingOrder
	if err := snap.DataTo(&pending); err != nil {
		return nil, nil, fmt.Errorf("decode pending order: %w", err)
	}
	return snap.Ref, &pending, nil
}

func (s *PaymentService) setPendingStatus(ctx context.Context, ref *firestore.DocumentRef, st payment.PendingStatus, now time.Time) error {
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		return fmt.Errorf("update pending order: %w", err)
	}
	return nil
}

func (s *PaymentService) recordPayment(ctx context.Context, cb PassCallback, res payple.Result, receiptIssued bool) {
	rec := payment.Record{
		ID:            cb.UserID + "_" + cb.PaymentID,
		UserID:        cb.UserID,
		PaymentID:     cb.PaymentID,
		Amount:        cb.Amount,
		Method:        "pass",
		ResultCode:    res.Code,
		Message:       res.Message,
		OK:            res.OK,
		ReceiptIssued: receiptIssued,
	}
	_, err := s.db.Collection("users").Doc(cb.UserID).Collection("payments").Doc(rec.ID).Set(ctx, rec)
	if err != nil {
		log.Printf("Failed to write payment record for %s: %v", cb.UserID, err)
	}
}

// upsertCardDisplay keeps only the display metadata; the gateway holds
// the real credentials.
func (s *PaymentService) upsertCardDisplay(ctx context.Context, cb PassCallback, now time.Time) {
	if cb.CardName == "" && cb.CardNumber == "" {
		return
	}
	_, err := s.db.Collection("users").Doc(cb.UserID).Set(ctx, map[string]any{
		"cardName":   cb.CardName,
		"cardNumber": cb.CardNumber,
		"updatedAt":  now,
	}, firestore.MergeAll)
	if err != nil {
		log.Printf("Failed to upsert card display for %s: %v", cb.UserID, err)
	}
}
