package notification

import "time"

type Type string

const (
	TypeLike    Type = "like"
	TypeComment Type = "comment"
)

// Notification lives under users/{ownerId}/notifications.
type Notification struct {
	ID        string    `firestore:"id" json:"id"`
	Type      Type      `firestore:"type" json:"type"`
	ActorID   string    `firestore:"actorId" json:"actorId"`
	ActorName string    `firestore:"actorName" json:"actorName"`
	PostID    string    `firestore:"postId" json:"postId"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// PostSnapshot is one side of a document-change event forwarded by the
// Firestore trigger: the lists of actor ids on the post before or after
// the write.
type PostSnapshot struct {
	LikedBy   []string `json:"likedBy"`
	CommentBy []string `json:"commentBy"`
}

type ChangeEvent struct {
	PostID  string       `json:"postId"`
	OwnerID string       `json:"ownerId"`
	Before  PostSnapshot `json:"before"`
	After   PostSnapshot `json:"after"`
}
