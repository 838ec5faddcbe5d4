package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"podoMarketAPI/internal/types/notification"
	"podoMarketAPI/internal/types/user"
)

const (
	burstWindow    = 5 * time.Minute
	burstThreshold = 10
	cooldownWindow = 15 * time.Minute
)

// PushProvider abstracts the push sender so tests can run without FCM.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []user.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db   *firestore.Client
	push PushProvider
}

func NewNotificationService(db *firestore.Client) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.push = p
}

// DiffNewActors returns the actor ids present in after but not before.
func DiffNewActors(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, id := range before {
		seen[id] = true
	}
	var added []string
	for _, id := range after {
		if !seen[id] {
			added = append(added, id)
			seen[id] = true
		}
	}
	return added
}

// Suppressed reports whether the owner is currently over the burst
// threshold: more than burstThreshold notifications in the trailing
// burst window, with the latest one inside the cooldown window.
func Suppressed(recentCount int, latest *time.Time, now time.Time) bool {
	if recentCount <= burstThreshold {
		return false
	}
	return latest != nil && now.Sub(*latest) <= cooldownWindow
}

// HandleChange turns a before/after post snapshot into notifications
// for the post owner, one per newly added actor. Self-notifications are
// skipped; a noisy post is throttled. Returns how many were created.
func (s *NotificationService) HandleChange(ctx context.Context, kind notification.Type, ev notification.ChangeEvent) (int, error) {
	if ev.PostID == "" || ev.OwnerID == "" {
		return 0, fmt.Errorf("change event missing postId or ownerId")
	}

	var before, after []string
	switch kind {
	case notification.TypeLike:
		before, after = ev.Before.LikedBy, ev.After.LikedBy
	case notification.TypeComment:
		before, after = ev.Before.CommentBy, ev.After.CommentBy
	default:
		return 0, fmt.Errorf("unknown change kind %q", kind)
	}

	added := DiffNewActors(before, after)
	if len(added) == 0 {
		return 0, nil
	}

	now := time.Now()
	recentCount, latest, err := s.recentActivity(ctx, ev.OwnerID, now)
	if err != nil {
		return 0, fmt.Errorf("check notification rate: %w", err)
	}
	if Suppressed(recentCount, latest, now) {
		log.Printf("Notifications for %s suppressed (burst)", ev.OwnerID)
		return 0, nil
	}

	owner := s.loadUser(ctx, ev.OwnerID)

	created := 0
	for _, actorID := range added {
		if actorID == ev.OwnerID {
			continue
		}

		actorName := "Someone"
		if actor := s.loadUser(ctx, actorID); actor != nil && actor.DisplayName != "" {
			actorName = actor.DisplayName
		}

		notif := notification.Notification{
			ID:        uuid.NewString(),
			Type:      kind,
			ActorID:   actorID,
			ActorName: actorName,
			PostID:    ev.PostID,
			CreatedAt: now,
		}
		_, err := s.db.Collection("users").Doc(ev.OwnerID).Collection("notifications").Doc(notif.ID).Set(ctx, notif)
		if err != nil {
			return created, fmt.Errorf("write notification: %w", err)
		}
		created++

		if s.push != nil && owner != nil && len(owner.DeviceTokens) > 0 {
			title, body := pushText(kind, actorName)
			if err := s.push.SendPush(ctx, owner.DeviceTokens, title, body, map[string]any{
				"postId": ev.PostID,
				"type":   string(kind),
			}); err != nil {
				log.Printf("Push for %s failed: %v", ev.OwnerID, err)
			}
		}
	}
	return created, nil
}

func pushText(kind notification.Type, actorName string) (title, body string) {
	switch kind {
	case notification.TypeComment:
		return "New comment", actorName + " commented on your post"
	default:
		return "New like", actorName + " liked your post"
	}
}

func (s *NotificationService) recentActivity(ctx context.Context, ownerID string, now time.Time) (int, *time.Time, error) {
	notifs := s.db.Collection("users").Doc(ownerID).Collection("notifications")

	iter := notifs.Where("createdAt", ">=", now.Add(-burstWindow)).Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, nil, err
		}
		count++
	}

	var latest *time.Time
	last := notifs.OrderBy("createdAt", firestore.Desc).Limit(1).Documents(ctx)
	defer last.Stop()
	if snap, err := last.Next(); err == nil {
		if v, err := snap.DataAt("createdAt"); err == nil {
			if t, ok := v.(time.Time); ok {
				latest = &t
			}
		}
	}

	return count, latest, nil
}

func (s *NotificationService) loadUser(ctx context.Context, id string) *user.User {
	snap, err := s.db.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		return nil
	}
	var u user.User
	if err := snap.DataTo(&u); err != nil {
		return nil
	}
	u.ID = id
	return &u
}
