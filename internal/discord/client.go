// Package discord is the chat-platform collaborator: channel enumeration,
// backward history paging and member listing over the REST API.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrMysteryCode/Friendle/internal/acquire"
	"github.com/MrMysteryCode/Friendle/internal/core"
)

const defaultAPIBase = "https://discord.com/api/v10"

// discordEpoch is the snowflake epoch (2015-01-01T00:00:00Z) in Unix ms.
const discordEpoch = 1420070400000

type Config struct {
	Token   string
	GuildID string
	APIBase string // overridable for tests
}

// Client talks to the REST API for one guild. Requests are paced with a
// shared limiter to stay under the platform's request budget.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(4), 2),
	}
}

type channelPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          int    `json:"type"`
	ParentID      string `json:"parent_id"`
	LastMessageID string `json:"last_message_id"`
	NSFW          bool   `json:"nsfw"`
}

// Channel types carrying readable text history.
const (
	channelTypeText         = 0
	channelTypeAnnouncement = 5
	channelTypeCategory     = 4
)

// Channels lists the guild's readable, non-sensitive text channels, newest
// activity hint derived from the channel's last message snowflake.
func (c *Client) Channels(ctx context.Context) ([]acquire.Channel, error) {
	var payload []channelPayload
	path := fmt.Sprintf("/guilds/%s/channels", url.PathEscape(c.cfg.GuildID))
	if err := c.get(ctx, path, nil, &payload); err != nil {
		return nil, fmt.Errorf("discord: list channels: %w", err)
	}

	out := make([]acquire.Channel, 0, len(payload))
	for _, ch := range payload {
		if ch.Type != channelTypeText && ch.Type != channelTypeAnnouncement {
			continue
		}
		if ch.NSFW {
			continue
		}
		entry := acquire.Channel{ID: ch.ID, Name: ch.Name}
		if ts, ok := SnowflakeTime(ch.LastMessageID); ok {
			entry.LastActive = ts
		}
		out = append(out, entry)
	}
	return out, nil
}

type userPayload struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

type messagePayload struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channel_id"`
	Content     string `json:"content"`
	Timestamp   string `json:"timestamp"`
	Author      userPayload `json:"author"`
	Attachments []struct {
		URL         string `json:"url"`
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		Size        int64  `json:"size"`
	} `json:"attachments"`
	Mentions  []userPayload `json:"mentions"`
	Reactions []struct {
		Count int `json:"count"`
	} `json:"reactions"`
}

// MessagesBefore fetches one backward page of channel history, newest first.
func (c *Client) MessagesBefore(ctx context.Context, channelID, beforeID string, limit int) ([]core.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if beforeID != "" {
		query.Set("before", beforeID)
	}

	var payload []messagePayload
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(channelID))
	if err := c.get(ctx, path, query, &payload); err != nil {
		return nil, fmt.Errorf("discord: channel %s history: %w", channelID, err)
	}

	out := make([]core.Message, 0, len(payload))
	for _, m := range payload {
		msg := core.Message{
			ID:        m.ID,
			AuthorID:  m.Author.ID,
			ChannelID: m.ChannelID,
			Content:   m.Content,
			Mentions:  len(m.Mentions),
		}
		if ts, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
			msg.Ts = ts.UTC()
		} else if ts, ok := SnowflakeTime(m.ID); ok {
			msg.Ts = ts
		}
		for _, att := range m.Attachments {
			msg.Attachments = append(msg.Attachments, core.Attachment{
				URL:         att.URL,
				Filename:    att.Filename,
				ContentType: att.ContentType,
				Size:        att.Size,
			})
		}
		for _, r := range m.Reactions {
			msg.Reactions += r.Count
		}
		out = append(out, msg)
	}
	return out, nil
}

type memberPayload struct {
	User userPayload `json:"user"`
	Nick string      `json:"nick"`
}

// Members lists the guild's members, paging forward by member ID. Account
// creation time is derived from the ID snowflake, so no per-user lookup is
// needed.
func (c *Client) Members(ctx context.Context) ([]core.Member, error) {
	var out []core.Member
	after := ""
	for {
		query := url.Values{}
		query.Set("limit", "1000")
		if after != "" {
			query.Set("after", after)
		}

		var page []memberPayload
		path := fmt.Sprintf("/guilds/%s/members", url.PathEscape(c.cfg.GuildID))
		if err := c.get(ctx, path, query, &page); err != nil {
			return nil, fmt.Errorf("discord: list members: %w", err)
		}
		if len(page) == 0 {
			return out, nil
		}

		for _, m := range page {
			member := core.Member{
				ID:         m.User.ID,
				Username:   m.User.Username,
				GlobalName: m.User.GlobalName,
				Nickname:   m.Nick,
			}
			if ts, ok := SnowflakeTime(m.User.ID); ok {
				member.CreatedAt = ts
			}
			out = append(out, member)
		}

		after = page[len(page)-1].User.ID
		if len(page) < 1000 {
			return out, nil
		}
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, into any) error {
	endpoint := c.cfg.APIBase + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bot "+c.cfg.Token)
		req.Header.Set("User-Agent", "Friendle (https://github.com/MrMysteryCode/Friendle, 1.0)")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		resp.Body.Close()
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			if !sleepContext(ctx, retryAfter(resp, body)) {
				return ctx.Err()
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		return json.Unmarshal(body, into)
	}
}

func retryAfter(resp *http.Response, body []byte) time.Duration {
	if raw := strings.TrimSpace(resp.Header.Get("Retry-After")); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	var parsed struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.RetryAfter > 0 {
		return time.Duration(parsed.RetryAfter * float64(time.Second))
	}
	return time.Second
}

// SnowflakeTime extracts the creation timestamp embedded in a snowflake ID.
func SnowflakeTime(id string) (time.Time, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil || n == 0 {
		return time.Time{}, false
	}
	ms := int64(n>>22) + discordEpoch
	return time.UnixMilli(ms).UTC(), true
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
