package payment

import "time"

// Record is one billing attempt, successful or not. Stored under
// users/{id}/payments and never updated after creation, except for the
// receiptIssued flag which the receipt flow flips best-effort.
type Record struct {
	ID            string    `firestore:"id" json:"id"`
	UserID        string    `firestore:"userId" json:"userId"`
	PaymentID     string    `firestore:"paymentId" json:"paymentId"`
	Amount        int       `firestore:"amount" json:"amount"`
	Method        string    `firestore:"method" json:"method"`
	ResultCode    string    `firestore:"resultCode" json:"resultCode"`
	Message       string    `firestore:"message" json:"message"`
	OK            bool      `firestore:"ok" json:"ok"`
	ReceiptIssued bool      `firestore:"receiptIssued" json:"receiptIssued"`
	CreatedAt     time.Time `firestore:"createdAt,serverTimestamp" json:"createdAt"`
}

type PendingStatus string

const (
	PendingStatusPending PendingStatus = "pending"
	PendingStatusSuccess PendingStatus = "success"
	PendingStatusFailed  PendingStatus = "failed"
)

// PendingOrder is the staging record created before the gateway's
// asynchronous confirmation callback arrives. (userId, paymentId) is
// unique and is the join key for the final payment record.
type PendingOrder struct {
	ID        string        `firestore:"id" json:"id"`
	UserID    string        `firestore:"userId" json:"userId"`
	PaymentID string        `firestore:"paymentId" json:"paymentId"`
	Amount    int           `firestore:"amount" json:"amount"`
	Goods     string        `firestore:"goods" json:"goods"`
	Status    PendingStatus `firestore:"status" json:"status"`
	CreatedAt time.Time     `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `firestore:"updatedAt" json:"updatedAt"`
}
