package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zlau-dev/h2ogpt-bridge/internal/entry"
	"github.com/zlau-dev/h2ogpt-bridge/internal/lifecycle"
)

// newFixture returns a router whose default agent talks to a stub h2oGPT
// server answering with the given payload.
func newFixture(t *testing.T, payload string) *chi.Mux {
	t.Helper()

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		json.NewEncoder(w).Encode(map[string][]string{"data": {payload}})
	}))
	t.Cleanup(remote.Close)

	store, err := entry.NewSQLiteStore(filepath.Join(t.TempDir(), "entries.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore err: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	ent := entry.Entry{ID: "entry-1", Title: entry.DefaultTitle, HostURL: remote.URL}
	if err := store.Create(ctx, ent); err != nil {
		t.Fatalf("Create entry err: %v", err)
	}

	manager := lifecycle.NewManager(store, 2*time.Second, 0)
	if err := manager.Setup(ctx, ent); err != nil {
		t.Fatalf("Setup err: %v", err)
	}

	handler := New(manager)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	NewWebSocketHandler(handler).RegisterWebSocketRoutes(r)
	return r
}

func emptyFixture(t *testing.T) *chi.Mux {
	t.Helper()
	store, err := entry.NewSQLiteStore(filepath.Join(t.TempDir(), "entries.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore err: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	handler := New(lifecycle.NewManager(store, 2*time.Second, 0))
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func postProcess(t *testing.T, r http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/conversation", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestProcessReturnsSpeech(t *testing.T) {
	r := newFixture(t, `{"response": "hi there"}`)

	resp := postProcess(t, r, map[string]string{"text": "hi"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body processResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Response.Speech != "hi there" {
		t.Fatalf("unexpected speech: %q", body.Response.Speech)
	}
	if body.ConversationID == "" {
		t.Fatal("expected conversation id")
	}
}

func TestProcessContinuesConversation(t *testing.T) {
	r := newFixture(t, `{"response": "hi there"}`)

	first := postProcess(t, r, map[string]string{"text": "hi"})
	var firstBody processResponse
	if err := json.NewDecoder(first.Body).Decode(&firstBody); err != nil {
		t.Fatalf("decode first response: %v", err)
	}

	second := postProcess(t, r, map[string]string{
		"text":            "again",
		"conversation_id": firstBody.ConversationID,
	})
	var secondBody processResponse
	if err := json.NewDecoder(second.Body).Decode(&secondBody); err != nil {
		t.Fatalf("decode second response: %v", err)
	}
	if secondBody.ConversationID != firstBody.ConversationID {
		t.Fatal("conversation id must be stable across turns")
	}

	req := httptest.NewRequest(http.MethodGet, "/conversation/"+firstBody.ConversationID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 transcript, got %d", rec.Code)
	}

	var transcript struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&transcript); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(transcript.Messages) != 5 {
		t.Fatalf("expected 5 messages after two turns, got %d", len(transcript.Messages))
	}
}

func TestProcessMalformedRemoteReply(t *testing.T) {
	r := newFixture(t, "not a dict")

	resp := postProcess(t, r, map[string]string{"text": "hi"})
	if resp.Code != http.StatusOK {
		t.Fatalf("synthesized error replies still return 200, got %d", resp.Code)
	}

	var body processResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Response.Error == nil || body.Response.Error.Code != "unknown" {
		t.Fatalf("expected unknown error body, got %+v", body.Response)
	}
	if body.ConversationID == "" {
		t.Fatal("conversation id must be present on error replies")
	}
}

func TestProcessMissingText(t *testing.T) {
	r := newFixture(t, `{"response": "unused"}`)

	resp := postProcess(t, r, map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestProcessNoActiveAgent(t *testing.T) {
	r := emptyFixture(t)

	resp := postProcess(t, r, map[string]string{"text": "hi"})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestTranscriptUnknownConversation(t *testing.T) {
	r := newFixture(t, `{"response": "unused"}`)

	req := httptest.NewRequest(http.MethodGet, "/conversation/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
