package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"podoMarketAPI/internal/config"
	"podoMarketAPI/internal/types/order"
)

// trackQuery is the tracking provider's GraphQL document. One static
// query, so it is sent as a plain JSON POST.
const trackQuery = `query Track($carrierId: ID!, $trackingNumber: String!) {
  track(carrierId: $carrierId, trackingNumber: $trackingNumber) {
    lastEvent {
      time
      status { code name }
      description
    }
    events(last: 20) {
      edges {
        node {
          time
          status { code name }
          description
        }
      }
    }
  }
}`

type TrackingService struct {
	db         *firestore.Client
	httpClient *http.Client
	cfg        config.Tracker
}

func NewTrackingService(db *firestore.Client, cfg config.Tracker) *TrackingService {
	return &TrackingService{
		db: db,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		cfg: cfg,
	}
}

type trackEvent struct {
	Time   time.Time `json:"time"`
	Status struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"status"`
	Description string `json:"description"`
}

type trackInfo struct {
	LastEvent *trackEvent `json:"lastEvent"`
	Events    struct {
		Edges []struct {
			Node trackEvent `json:"node"`
		} `json:"edges"`
	} `json:"events"`
}

type trackResponse struct {
	Data struct {
		Track *trackInfo `json:"track"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// UpdateFromWebhook queries the tracking provider and pushes the status
// onto every matching order. Zero matching orders is a silent no-op.
// The caller has already acknowledged the webhook; this runs detached.
func (s *TrackingService) UpdateFromWebhook(ctx context.Context, carrierID, trackingNumber string) {
	matched, err := s.update(ctx, carrierID, trackingNumber)
	s.audit(ctx, carrierID, trackingNumber, matched, err)
	if err != nil {
		log.Printf("Tracking update %s/%s failed: %v", carrierID, trackingNumber, err)
	}
}

func (s *TrackingService) update(ctx context.Context, carrierID, trackingNumber string) (int, error) {
	track, err := s.fetch(ctx, carrierID, trackingNumber)
	if err != nil {
		return 0, err
	}

	var events []order.DeliveryEvent
	for _, edge := range track.Events.Edges {
		events = append(events, order.DeliveryEvent{
			Time:        edge.Node.Time,
			StatusCode:  edge.Node.Status.Code,
			StatusName:  edge.Node.Status.Name,
			Description: edge.Node.Description,
		})
	}
	deliveryStatus := ""
	if track.LastEvent != nil {
		deliveryStatus = track.LastEvent.Status.Code
	}

	iter := s.db.Collection("orders").
		Where("carrierId", "==", carrierID).
		Where("trackingNumber", "==", trackingNumber).
		Documents(ctx)
	defer iter.Stop()

	matched := 0
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return matched, fmt.Errorf("query orders: %w", err)
		}

		_, err = snap.Ref.Update(ctx, []firestore.Update{
			{Path: "deliveryStatus", Value: deliveryStatus},
			{Path: "deliveryEvents", Value: events},
		})
		if err != nil {
			return matched, fmt.Errorf("update order %s: %w", snap.Ref.ID, err)
		}
		matched++
	}
	return matched, nil
}

func (s *TrackingService) fetch(ctx context.Context, carrierID, trackingNumber string) (*trackInfo, error) {
	body, err := json.Marshal(map[string]any{
		"query": trackQuery,
		"variables": map[string]string{
			"carrierId":      carrierID,
			"trackingNumber": trackingNumber,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal track query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "TRACKER "+s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tracking provider error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed trackResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode tracking response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("tracking query rejected: %s", parsed.Errors[0].Message)
	}
	if parsed.Data.Track == nil {
		return nil, fmt.Errorf("tracking query returned no shipment")
	}
	return parsed.Data.Track, nil
}

func (s *TrackingService) audit(ctx context.Context, carrierID, trackingNumber string, matched int, updateErr error) {
	doc := map[string]any{
		"carrierId":      carrierID,
		"trackingNumber": trackingNumber,
		"matched":        matched,
		"ok":             updateErr == nil,
		"createdAt":      time.Now(),
	}
	if updateErr != nil {
		doc["error"] = updateErr.Error()
	}
	if _, err := s.db.Collection("transfer_results").Doc(uuid.NewString()).Set(ctx, doc); err != nil {
		log.Printf("Failed to write tracking audit: %v", err)
	}
}
