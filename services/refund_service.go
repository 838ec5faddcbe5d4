package services

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"podoMarketAPI/internal/payple"
	"podoMarketAPI/internal/types/order"
)

type RefundService struct {
	db      *firestore.Client
	gateway *payple.Client
	mail    *MailService
}

func NewRefundService(db *firestore.Client, gateway *payple.Client, mail *MailService) *RefundService {
	return &RefundService{
		db:      db,
		gateway: gateway,
		mail:    mail,
	}
}

// Refund cancels the order's payment at the gateway, restores the
// product stock and removes the order. Any gateway failure aborts
// before any mutation.
func (s *RefundService) Refund(ctx context.Context, userID, orderID string) (*order.CanceledOrder, error) {
	snap, err := s.db.Collection("orders").Doc(orderID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	var ord order.Order
	if err := snap.DataTo(&ord); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	ord.ID = orderID

	if ord.UserID != userID {
		return nil, ErrForbidden
	}

	cred, err := s.gateway.Authenticate(ctx, payple.WorkCancel)
	if err != nil {
		return nil, err
	}
	res, err := s.gateway.Refund(ctx, cred, payple.RefundParams{
		PaymentID:   ord.PaymentID,
		PaymentDate: ord.PaymentDate,
		Amount:      ord.Amount,
	})
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return nil, &ProviderError{Result: res}
	}

	// Stock back first, then drop the order. The counter update is
	// atomic; the two writes together are not.
	if ord.ProductID != "" {
		_, err = s.db.Collection("products").Doc(ord.ProductID).Update(ctx, []firestore.Update{
			{Path: "stock", Value: firestore.Increment(ord.Quantity)},
		})
		if err != nil {
			return nil, fmt.Errorf("restore stock: %w", err)
		}
	}

	if _, err := s.db.Collection("orders").Doc(orderID).Delete(ctx); err != nil {
		return nil, fmt.Errorf("delete order: %w", err)
	}

	audit := &order.CanceledOrder{
		ID:           uuid.NewString(),
		OrderID:      orderID,
		UserID:       userID,
		ProductID:    ord.ProductID,
		Quantity:     ord.Quantity,
		Amount:       ord.Amount,
		ProviderCode: res.Code,
	}
	if _, err := s.db.Collection("canceled_orders").Doc(audit.ID).Set(ctx, audit); err != nil {
		log.Printf("Failed to write refund audit for order %s: %v", orderID, err)
	}

	s.sendRefundMail(ctx, userID, orderID, ord.Amount)

	return audit, nil
}

func (s *RefundService) sendRefundMail(ctx context.Context, userID, orderID string, amount int) {
	snap, err := s.db.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		return
	}
	email, _ := snap.DataAt("email")
	addr, _ := email.(string)
	if addr == "" {
		return
	}
	if err := s.mail.SendRefundConfirmation(addr, orderID, amount); err != nil {
		log.Printf("Refund mail to %s failed: %v", addr, err)
	}
}
