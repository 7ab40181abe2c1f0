// Package ingest submits signed puzzle and metadata payloads to the storage
// service. Submission is fire-and-forget per item: the caller logs failures
// and moves on; retrying is the scheduler's job.
package ingest

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
	"time"

	"github.com/MrMysteryCode/Friendle/internal/core"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Signature"

type Client struct {
	baseURL string
	secret  []byte
	http    *http.Client
}

func New(baseURL, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  []byte(secret),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Sign computes the hex HMAC-SHA256 digest over the exact serialized bytes.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type puzzleEnvelope struct {
	CommunityID string      `json:"community_id"`
	Puzzle      core.Puzzle `json:"puzzle"`
}

// MetaEnvelope carries the presentation layer's join data: the name map, the
// metrics map, and the allow-list of opted-in display names.
type MetaEnvelope struct {
	CommunityID      string                          `json:"community_id"`
	Date             string                          `json:"date"`
	Names            map[string]string               `json:"names"`
	Metrics          map[string]core.ActivityMetrics `json:"metrics"`
	AllowedUsernames []string                        `json:"allowed_usernames"`
}

// SubmitPuzzle serializes, signs and posts one puzzle.
func (c *Client) SubmitPuzzle(ctx context.Context, communityID string, p core.Puzzle) error {
	return c.post(ctx, "/ingest", puzzleEnvelope{CommunityID: communityID, Puzzle: p})
}

// SubmitMeta posts the metadata envelope for one day.
func (c *Client) SubmitMeta(ctx context.Context, meta MetaEnvelope) error {
	return c.post(ctx, "/meta", meta)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ingest: marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ingest: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(c.secret, body))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ingest: post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ingest: post %s: status %s: %s", path, resp.Status, bytes.TrimSpace(snippet))
	}
	return nil
}
