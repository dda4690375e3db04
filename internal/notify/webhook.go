package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"surebet/internal/config"
	"surebet/internal/model"
)

// Header names carried by every webhook delivery.
const (
	TimestampHeader = "X-Surebet-Timestamp"
	SignatureHeader = "X-Surebet-Signature"
)

// Payload is the JSON body posted to the webhook.
type Payload struct {
	RunID         string              `json:"run_id"`
	Found         int                 `json:"found"`
	SourcesOK     int                 `json:"sources_ok"`
	SourcesTotal  int                 `json:"sources_total"`
	Opportunities []model.Opportunity `json:"opportunities"`
}

// Webhook posts the best opportunities of a run, signed with HMAC-SHA256.
type Webhook struct {
	url        string
	secret     string
	top        int
	httpClient *http.Client
	now        func() time.Time
}

func NewWebhook(cfg config.NotifyConfig) *Webhook {
	top := cfg.Top
	if top <= 0 {
		top = 5
	}
	return &Webhook{
		url:        cfg.WebhookURL,
		secret:     cfg.Secret,
		top:        top,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

func (w *Webhook) Name() string { return "webhook" }

// Sign returns hex(HMAC-SHA256(secret, timestamp + "." + body)).
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign in constant time.
func Verify(secret, timestamp string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, timestamp, body)), []byte(signature))
}

// Publish sends nothing when the run found no opportunities.
func (w *Webhook) Publish(ctx context.Context, report model.ScanReport) error {
	if len(report.Opportunities) == 0 {
		return nil
	}

	top := report.Opportunities
	if len(top) > w.top {
		top = top[:w.top]
	}
	body, err := json.Marshal(Payload{
		RunID:         report.RunID,
		Found:         len(report.Opportunities),
		SourcesOK:     report.Succeeded(),
		SourcesTotal:  len(report.Batches),
		Opportunities: top,
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	ts := strconv.FormatInt(w.now().Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TimestampHeader, ts)
	if w.secret != "" {
		req.Header.Set(SignatureHeader, Sign(w.secret, ts, body))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
