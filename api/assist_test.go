package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"tasktrail/ai"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.reply, s.err
}

func withParser(c ai.Completer) func(*Deps) {
	return func(d *Deps) { d.Parser = ai.NewParser(c) }
}

func TestAIStatus(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/ai/status", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeJSON[map[string]bool](t, rec); got["enabled"] {
		t.Fatalf("expected AI disabled")
	}

	s = newTestServer(t, withParser(stubCompleter{}))
	rec = s.do(t, http.MethodGet, "/api/ai/status", nil)
	if got := decodeJSON[map[string]bool](t, rec); !got["enabled"] {
		t.Fatalf("expected AI enabled")
	}
}

func TestAIParse(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/ai/parse", textRequest{Text: "call bank"})
	expectStatus(t, rec, http.StatusOK)
	res := decodeJSON[ai.ParseResult](t, rec)
	if res.Mode != ai.ModeFallback || len(res.Items) != 1 || res.Items[0].Title != "call bank" || res.Message != "AI disabled" {
		t.Fatalf("unexpected fallback: %+v", res)
	}

	s = newTestServer(t, withParser(stubCompleter{reply: `[{"title":"Call bank","date":"2026-03-05"}]`}))
	rec = s.do(t, http.MethodPost, "/api/ai/parse", textRequest{Text: "call bank tomorrow"})
	expectStatus(t, rec, http.StatusOK)
	res = decodeJSON[ai.ParseResult](t, rec)
	if res.Mode != ai.ModeAI || res.Items[0].Date != "2026-03-05" || res.Todo[0] != "Call bank" {
		t.Fatalf("unexpected result: %+v", res)
	}

	s = newTestServer(t, withParser(stubCompleter{err: errors.New("boom")}))
	rec = s.do(t, http.MethodPost, "/api/ai/parse", textRequest{Text: "x"})
	expectStatus(t, rec, http.StatusBadGateway)
	if got := decodeJSON[errorResponse](t, rec); got.Error != "Failed to parse input" {
		t.Fatalf("error = %q", got.Error)
	}
}

func TestAISuggest(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/ai/suggest", textRequest{Text: "trip"})
	expectStatus(t, rec, http.StatusInternalServerError)
	if got := decodeJSON[errorResponse](t, rec); got.Error != "OPENAI_API_KEY is required" {
		t.Fatalf("error = %q", got.Error)
	}

	s = newTestServer(t, withParser(stubCompleter{reply: "- Book hotel\n- Pack"}))
	rec = s.do(t, http.MethodPost, "/api/ai/suggest", textRequest{Text: "trip"})
	expectStatus(t, rec, http.StatusOK)
	if got := decodeJSON[suggestResponse](t, rec); len(got.Tasks) != 2 || got.Tasks[1] != "Pack" {
		t.Fatalf("tasks = %v", got.Tasks)
	}

	s = newTestServer(t, withParser(stubCompleter{err: errors.New("boom")}))
	rec = s.do(t, http.MethodPost, "/api/ai/suggest", textRequest{Text: "trip"})
	expectStatus(t, rec, http.StatusBadGateway)
}

func TestAIImport(t *testing.T) {
	s := newTestServer(t, withParser(stubCompleter{reply: `["Buy milk","Walk dog"]`}))
	rec := s.do(t, http.MethodPost, "/api/ai/import", textRequest{Text: "milk and dog"})
	expectStatus(t, rec, http.StatusCreated)
	got := decodeJSON[importResponse](t, rec)
	snap := s.snapshot(t)
	if got.Mode != ai.ModeAI || len(got.Tasks) != 2 {
		t.Fatalf("unexpected import: %+v", got)
	}
	for _, task := range got.Tasks {
		if task.StatusID != snap.Roles.Inbox {
			t.Fatalf("imported task not in inbox: %+v", task)
		}
	}

	s = newTestServer(t, withParser(stubCompleter{err: errors.New("boom")}))
	rec = s.do(t, http.MethodPost, "/api/ai/import", textRequest{Text: "  literal text "})
	expectStatus(t, rec, http.StatusCreated)
	got = decodeJSON[importResponse](t, rec)
	if got.Mode != ai.ModeFallback || len(got.Tasks) != 1 || got.Tasks[0].Title != "literal text" {
		t.Fatalf("expected literal fallback, got %+v", got)
	}

	rec = s.do(t, http.MethodPost, "/api/ai/import", textRequest{Text: " "})
	expectStatus(t, rec, http.StatusOK)
	if got := decodeJSON[importResponse](t, rec); len(got.Tasks) != 0 {
		t.Fatalf("empty import created tasks: %+v", got)
	}
}
