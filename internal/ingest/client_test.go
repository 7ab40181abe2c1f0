package ingest

import (
	"context"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrMysteryCode/Friendle/internal/core"
)

func TestSignMatchesServerSideVerification(t *testing.T) {
	secret := []byte("topsecret")
	body := []byte(`{"community_id":"42"}`)

	sig := Sign(secret, body)
	want, err := hex.DecodeString(sig)
	if err != nil {
		t.Fatalf("signature is not hex: %v", err)
	}

	recomputed, _ := hex.DecodeString(Sign(secret, body))
	if !hmac.Equal(want, recomputed) {
		t.Fatal("same secret and body must verify")
	}

	mutated := append([]byte(nil), body...)
	mutated[0] ^= 0x01
	if Sign(secret, mutated) == sig {
		t.Fatal("one-byte body mutation must change the signature")
	}
	if Sign([]byte("othersecret"), body) == sig {
		t.Fatal("different secret must change the signature")
	}
}

func TestSubmitPuzzleSignsRawBody(t *testing.T) {
	var gotBody []byte
	var gotSig string
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(srv.URL, "topsecret")
	p := &core.QuotePuzzle{
		PuzzleBase: core.PuzzleBase{Game: core.GameQuote, Date: "2026-08-27", SolutionUserID: "a"},
		WordCount:  3,
	}
	if err := client.SubmitPuzzle(context.Background(), "42", p); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if gotPath != "/ingest" {
		t.Fatalf("expected POST /ingest, got %q", gotPath)
	}
	if gotSig != Sign([]byte("topsecret"), gotBody) {
		t.Fatal("signature does not verify over the raw received body")
	}

	var envelope struct {
		CommunityID string          `json:"community_id"`
		Puzzle      json.RawMessage `json:"puzzle"`
	}
	if err := json.Unmarshal(gotBody, &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if envelope.CommunityID != "42" {
		t.Fatalf("expected community 42, got %q", envelope.CommunityID)
	}
	var quote core.QuotePuzzle
	if err := json.Unmarshal(envelope.Puzzle, &quote); err != nil {
		t.Fatalf("failed to decode puzzle: %v", err)
	}
	if quote.Game != core.GameQuote || quote.Date != "2026-08-27" || quote.WordCount != 3 {
		t.Fatalf("unexpected puzzle payload: %+v", quote)
	}
}

func TestSubmitMeta(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meta" {
			t.Errorf("expected /meta, got %q", r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(srv.URL, "topsecret")
	err := client.SubmitMeta(context.Background(), MetaEnvelope{
		CommunityID:      "42",
		Date:             "2026-08-27",
		Names:            map[string]string{"a": "Alice"},
		AllowedUsernames: []string{"Alice"},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	var meta MetaEnvelope
	if err := json.Unmarshal(gotBody, &meta); err != nil {
		t.Fatalf("failed to decode meta: %v", err)
	}
	if meta.Date != "2026-08-27" || meta.Names["a"] != "Alice" {
		t.Fatalf("unexpected meta payload: %+v", meta)
	}
}

func TestPostErrorIncludesBodySnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(srv.URL, "topsecret")
	err := client.SubmitPuzzle(context.Background(), "42", &core.MediaPuzzle{
		PuzzleBase: core.PuzzleBase{Game: core.GameMedia, Date: "2026-08-27"},
	})
	if err == nil {
		t.Fatal("expected an error for a 401 response")
	}
	if !strings.Contains(err.Error(), "invalid signature") {
		t.Fatalf("expected the response snippet in the error, got %v", err)
	}
}
