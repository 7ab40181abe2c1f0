package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MrMysteryCode/Friendle/internal/core"
	"github.com/MrMysteryCode/Friendle/internal/store"
)

const maxBodyBytes = 1 << 20

// readSigned reads the raw body and verifies the signature header over the
// exact bytes. A rejected request never reaches the store.
func (s *Server) readSigned(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return nil, false
	}
	if !verifySignature([]byte(s.opts.Secret), body, r.Header.Get(SignatureHeader)) {
		s.metrics.IncSignatureFailures()
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return nil, false
	}
	return body, true
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readSigned(w, r)
	if !ok {
		return
	}

	var req struct {
		CommunityID string          `json:"community_id"`
		Puzzle      json.RawMessage `json:"puzzle"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json")
		return
	}
	if req.CommunityID == "" || len(req.Puzzle) == 0 {
		writeError(w, http.StatusBadRequest, "community_id and puzzle required")
		return
	}

	var head struct {
		Game string `json:"game"`
		Date string `json:"date"`
	}
	if err := json.Unmarshal(req.Puzzle, &head); err != nil {
		writeError(w, http.StatusBadRequest, "malformed puzzle")
		return
	}
	if head.Game == "" || head.Date == "" {
		writeError(w, http.StatusBadRequest, "puzzle game and date required")
		return
	}
	if !validGame(head.Game) {
		writeError(w, http.StatusBadRequest, "unknown game")
		return
	}
	if _, err := time.Parse("2006-01-02", head.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	ctx := r.Context()
	if err := s.kv.Set(ctx, store.PuzzleKey(req.CommunityID, head.Date, head.Game), string(req.Puzzle), store.TTL); err != nil {
		s.storeError("write puzzle", err)
		writeError(w, http.StatusInternalServerError, "store write failed")
		return
	}
	// Latest pointers are last-write-wins, not versioned.
	s.setPointer(ctx, store.LatestDateKey(req.CommunityID), head.Date)
	s.setPointer(ctx, store.LatestGameKey(req.CommunityID, head.Game), head.Date)

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "game": head.Game, "date": head.Date})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readSigned(w, r)
	if !ok {
		return
	}

	var req struct {
		CommunityID      string          `json:"community_id"`
		Date             string          `json:"date"`
		Names            json.RawMessage `json:"names"`
		Metrics          json.RawMessage `json:"metrics"`
		AllowedUsernames json.RawMessage `json:"allowed_usernames"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json")
		return
	}
	if req.CommunityID == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, "community_id and date required")
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	ctx := r.Context()
	records := map[string]json.RawMessage{
		store.NamesKey(req.CommunityID, req.Date):   req.Names,
		store.MetricsKey(req.CommunityID, req.Date): req.Metrics,
		store.AllowedKey(req.CommunityID, req.Date): req.AllowedUsernames,
	}
	for key, value := range records {
		if len(value) == 0 {
			continue
		}
		if err := s.kv.Set(ctx, key, string(value), store.TTL); err != nil {
			s.storeError("write metadata", err)
			writeError(w, http.StatusInternalServerError, "store write failed")
			return
		}
	}
	s.setPointer(ctx, store.LatestDateKey(req.CommunityID), req.Date)

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "date": req.Date})
}

type puzzlesResponse struct {
	CommunityID      string                     `json:"community_id"`
	Date             string                     `json:"date"`
	Puzzles          map[string]any             `json:"puzzles"`
	Names            map[string]string          `json:"names"`
	Metrics          map[string]json.RawMessage `json:"metrics"`
	AllowedUsernames []string                   `json:"allowed_usernames"`
}

func (s *Server) handlePuzzles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	community := communityParam(q.Get("guild_id"), q.Get("community_id"))
	if community == "" {
		writeError(w, http.StatusBadRequest, "guild_id required")
		return
	}

	ctx := r.Context()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" || q.Get("latest") == "1" {
		latest, err := s.kv.Get(ctx, store.LatestDateKey(community))
		if err == nil {
			date = latest
		}
	}

	resp := puzzlesResponse{
		CommunityID:      community,
		Date:             date,
		Puzzles:          make(map[string]any, len(core.Games)),
		Names:            map[string]string{},
		Metrics:          map[string]json.RawMessage{},
		AllowedUsernames: []string{},
	}

	gameFilter := strings.TrimSpace(q.Get("game"))
	if gameFilter != "" && !validGame(gameFilter) {
		writeError(w, http.StatusBadRequest, "unknown game")
		return
	}

	if date != "" {
		s.loadJSON(ctx, store.NamesKey(community, date), &resp.Names)
		s.loadJSON(ctx, store.MetricsKey(community, date), &resp.Metrics)
		s.loadJSON(ctx, store.AllowedKey(community, date), &resp.AllowedUsernames)
	}

	for _, game := range core.Games {
		if gameFilter != "" && game != gameFilter {
			continue
		}
		resp.Puzzles[game] = nil
		if date == "" {
			continue
		}
		raw, err := s.kv.Get(ctx, store.PuzzleKey(community, date, game))
		if err != nil {
			continue // missing games are null, not errors
		}
		var puzzle map[string]any
		if err := json.Unmarshal([]byte(raw), &puzzle); err != nil {
			log.Printf("puzzled: stored puzzle %s/%s/%s is not valid json: %v", community, date, game, err)
			continue
		}
		if sid, _ := puzzle["solution_user_id"].(string); sid != "" {
			if name, ok := resp.Names[sid]; ok {
				puzzle["solution_user_name"] = name
			}
			if game == core.GameDaily {
				if m, ok := resp.Metrics[sid]; ok {
					puzzle["solution_metrics"] = m
				}
			}
		}
		resp.Puzzles[game] = puzzle
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatsGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	community := communityParam(q.Get("guild_id"), q.Get("community_id"))
	date := strings.TrimSpace(q.Get("date"))

	scope := store.GlobalScope()
	switch {
	case community != "" && date != "":
		scope = store.CommunityDayScope(community, date)
	case community != "":
		scope = store.CommunityScope(community)
	}

	counters, err := store.ReadCounters(r.Context(), s.kv, scope)
	if err != nil {
		s.storeError("read counters", err)
		writeError(w, http.StatusInternalServerError, "store read failed")
		return
	}
	writeJSON(w, http.StatusOK, counters)
}

// eventMetrics maps a counter POST type to the metrics it bumps. Completing
// the day's set also marks the player active.
var eventMetrics = map[string][]string{
	"view":          {store.MetricViews},
	"guess":         {store.MetricGuessesTotal},
	"guess_correct": {store.MetricGuessedCorrectly},
	"game_complete": {store.MetricCompletedGames, store.MetricActivePlayers},
}

func (s *Server) handleStatsPost(w http.ResponseWriter, r *http.Request) {
	if token := s.opts.StatsToken; token != "" {
		presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if presented != token {
			writeError(w, http.StatusForbidden, "missing or invalid credential")
			return
		}
	}

	defer r.Body.Close()
	var req struct {
		Type        string `json:"type"`
		CommunityID string `json:"community_id"`
		Date        string `json:"date"`
		Latest      bool   `json:"latest"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json")
		return
	}

	metrics, ok := eventMetrics[req.Type]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown event type")
		return
	}

	ctx := r.Context()
	date := strings.TrimSpace(req.Date)
	if date == "" && req.Latest && req.CommunityID != "" {
		if latest, err := s.kv.Get(ctx, store.LatestDateKey(req.CommunityID)); err == nil {
			date = latest
		}
	}

	scopes := []string{store.GlobalScope()}
	if req.CommunityID != "" {
		scopes = append(scopes, store.CommunityScope(req.CommunityID))
		if date != "" {
			scopes = append(scopes, store.CommunityDayScope(req.CommunityID, date))
		}
	}

	for _, scope := range scopes {
		for _, metric := range metrics {
			if err := store.IncrCounter(ctx, s.kv, scope, metric); err != nil {
				s.storeError("increment counter", err)
				writeError(w, http.StatusInternalServerError, "store write failed")
				return
			}
		}
	}

	s.metrics.IncCounterEvent(req.Type)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) loadJSON(ctx context.Context, key string, into any) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		log.Printf("puzzled: stored record %s is not valid json: %v", key, err)
	}
}

func (s *Server) setPointer(ctx context.Context, key, value string) {
	if err := s.kv.Set(ctx, key, value, store.TTL); err != nil {
		s.storeError("write pointer", err)
	}
}

func (s *Server) storeError(op string, err error) {
	s.metrics.IncStoreErrors()
	log.Printf("puzzled: %s: %v", op, err)
}

func validGame(game string) bool {
	for _, g := range core.Games {
		if g == game {
			return true
		}
	}
	return false
}

func communityParam(guildID, communityID string) string {
	if v := strings.TrimSpace(guildID); v != "" {
		return v
	}
	return strings.TrimSpace(communityID)
}
