package user

import "time"

// User mirrors the mobile app's profile document. IsSubscribed is kept
// in sync with the subscription status by the billing flows; card
// fields are display-only, the gateway keeps the real credentials.
type User struct {
	ID           string        `firestore:"id" json:"id"`
	DisplayName  string        `firestore:"displayName" json:"displayName"`
	Email        string        `firestore:"email" json:"email"`
	Phone        string        `firestore:"phone" json:"phone,omitempty"`
	IsSubscribed bool          `firestore:"isSubscribed" json:"isSubscribed"`
	CardName     string        `firestore:"cardName" json:"cardName,omitempty"`
	CardNumber   string        `firestore:"cardNumber" json:"cardNumber,omitempty"`
	DeviceTokens []DeviceToken `firestore:"deviceTokens" json:"-"`
	UpdatedAt    time.Time     `firestore:"updatedAt" json:"updatedAt"`
}

type DeviceToken struct {
	Token    string `firestore:"token" json:"token"`
	Platform string `firestore:"platform" json:"platform"`
}
