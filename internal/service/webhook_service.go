package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
)

// WebhookPayload is posted to a notification's webhook URL
type WebhookPayload struct {
	Type           string    `json:"type"`
	EventID        string    `json:"event_id"`
	SID            uint      `json:"sid"`
	CID            uint      `json:"cid"`
	Signature      string    `json:"signature"`
	SigID          uint      `json:"sig_id"`
	Severity       int       `json:"severity"`
	Sensor         string    `json:"sensor"`
	IPSrc          string    `json:"ip_src"`
	IPDst          string    `json:"ip_dst"`
	SrcPort        int       `json:"src_port,omitempty"`
	DstPort        int       `json:"dst_port,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	NotificationID uint      `json:"notification_id"`
}

// NewWebhookPayload flattens an event for alert receivers
func NewWebhookPayload(e *models.Event, notificationID uint) WebhookPayload {
	p := WebhookPayload{
		Type:           "alert",
		EventID:        e.ID().String(),
		SID:            e.SID,
		CID:            e.CID,
		SigID:          e.SigID,
		Severity:       e.Severity(),
		IPSrc:          e.SourceIP(),
		IPDst:          e.DestinationIP(),
		SrcPort:        e.SourcePort(),
		DstPort:        e.DestinationPort(),
		Timestamp:      e.Timestamp.UTC(),
		NotificationID: notificationID,
	}
	if e.Signature != nil {
		p.Signature = e.Signature.Name
	}
	if e.Sensor != nil {
		p.Sensor = e.Sensor.DisplayName()
	}
	return p
}

// WebhookService posts JSON alerts
type WebhookService struct {
	httpClient *http.Client
}

// NewWebhookService creates a new webhook service
func NewWebhookService() *WebhookService {
	return &WebhookService{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send posts payload as JSON; any non-2xx answer is an error
func (s *WebhookService) Send(ctx context.Context, webhookURL string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "eventdesk-webhook/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
