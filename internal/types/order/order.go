package order

import "time"

type Order struct {
	ID             string          `firestore:"id" json:"id"`
	UserID         string          `firestore:"userId" json:"userId"`
	ProductID      string          `firestore:"productId" json:"productId"`
	Quantity       int             `firestore:"quantity" json:"quantity"`
	Amount         int             `firestore:"amount" json:"amount"`
	PaymentID      string          `firestore:"paymentId" json:"paymentId"`
	PaymentDate    time.Time       `firestore:"paymentDate" json:"paymentDate"`
	CarrierID      string          `firestore:"carrierId" json:"carrierId,omitempty"`
	TrackingNumber string          `firestore:"trackingNumber" json:"trackingNumber,omitempty"`
	DeliveryStatus string          `firestore:"deliveryStatus" json:"deliveryStatus,omitempty"`
	DeliveryEvents []DeliveryEvent `firestore:"deliveryEvents" json:"deliveryEvents,omitempty"`
	CreatedAt      time.Time       `firestore:"createdAt" json:"createdAt"`
}

type DeliveryEvent struct {
	Time        time.Time `firestore:"time" json:"time"`
	StatusCode  string    `firestore:"statusCode" json:"statusCode"`
	StatusName  string    `firestore:"statusName" json:"statusName"`
	Description string    `firestore:"description" json:"description"`
}

type Product struct {
	ID    string `firestore:"id" json:"id"`
	Name  string `firestore:"name" json:"name"`
	Price int    `firestore:"price" json:"price"`
	Stock int    `firestore:"stock" json:"stock"`
}

// CanceledOrder is the refund audit copy written when an order is
// refunded and removed.
type CanceledOrder struct {
	ID           string    `firestore:"id" json:"id"`
	OrderID      string    `firestore:"orderId" json:"orderId"`
	UserID       string    `firestore:"userId" json:"userId"`
	ProductID    string    `firestore:"productId" json:"productId"`
	Quantity     int       `firestore:"quantity" json:"quantity"`
	Amount       int       `firestore:"amount" json:"amount"`
	ProviderCode string    `firestore:"providerCode" json:"providerCode"`
	RefundedAt   time.Time `firestore:"refundedAt,serverTimestamp" json:"refundedAt"`
}
