package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podoMarketAPI/internal/config"
	"podoMarketAPI/internal/types/payment"
)

func TestConfirmPassWithoutPendingOrder(t *testing.T) {
	db := testFirestore(t)
	svc := NewPaymentService(db, nil, NewReceiptService(config.Receipt{}))

	_, err := svc.ConfirmPass(context.Background(), PassCallback{
		UserID:    "nobody-" + uuid.NewString(),
		PaymentID: "order-" + uuid.NewString(),
		Result:    "success",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

// A client-side decline short-circuits before the confirm call: the
// pending order fails and no payment record is written.
func TestConfirmPassDeclineMarksPendingFailed(t *testing.T) {
	db := testFirestore(t)
	svc := NewPaymentService(db, nil, NewReceiptService(config.Receipt{}))
	ctx := context.Background()

	userID := "decline-" + uuid.NewString()
	paymentID := "order-" + uuid.NewString()
	pending, err := svc.StagePendingOrder(ctx, userID, paymentID, "goods", 5000)
	require.NoError(t, err)
	require.Equal(t, payment.PendingStatusPending, pending.Status)

	status, err := svc.ConfirmPass(ctx, PassCallback{
		UserID:    userID,
		PaymentID: paymentID,
		Result:    "error",
		Message:   "user closed the payment window",
	})
	require.NoError(t, err)
	assert.Equal(t, payment.PendingStatusFailed, status)

	snap, err := db.Collection("pending_orders").Doc(pending.ID).Get(ctx)
	require.NoError(t, err)
	got, err := snap.DataAt("status")
	require.NoError(t, err)
	assert.Equal(t, string(payment.PendingStatusFailed), got)

	payments, err := db.Collection("users").Doc(userID).Collection("payments").Documents(ctx).GetAll()
	require.NoError(t, err)
	assert.Empty(t, payments, "a declined payment leaves no payment record")
}
