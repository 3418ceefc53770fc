package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsrelay/internal/dedupe"
	"newsrelay/internal/language"
	"newsrelay/internal/relay"
)

type stubTranslator struct{}

func (stubTranslator) TranslateToAll(_ context.Context, text string, _ language.Code) map[language.Code]string {
	out := make(map[language.Code]string)
	for _, lang := range language.All() {
		out[lang] = text
	}
	return out
}

func (stubTranslator) SummarizeAndTranslate(_ context.Context, text string, src language.Code) map[language.Code]string {
	return map[language.Code]string{src: text}
}

type stubDeliverer struct{ count int }

func (d *stubDeliverer) Deliver(context.Context, language.Code, string, string) bool {
	d.count++
	return true
}

func newTestServer() (*Server, *stubDeliverer) {
	d := &stubDeliverer{}
	processor := relay.New(stubTranslator{}, d, dedupe.NewWindow(24*time.Hour))
	return New(processor, language.Hebrew, language.Spanish), d
}

func post(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestAlertEndpoint(t *testing.T) {
	srv, d := newTestServer()
	router := srv.Router()

	rec := post(t, router, "/webhook/alert", `{"text":"sirens in the north","message_id":"a1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	results, ok := body["results"].(map[string]interface{})
	if !ok || len(results) != len(language.All()) {
		t.Fatalf("expected per-language results, got %v", body)
	}
	if d.count != len(language.All()) {
		t.Fatalf("expected %d deliveries, got %d", len(language.All()), d.count)
	}
}

func TestAlertEndpointDuplicate(t *testing.T) {
	srv, d := newTestServer()
	router := srv.Router()

	post(t, router, "/webhook/alert", `{"text":"sirens","message_id":"dup-1"}`)
	sent := d.count

	rec := post(t, router, "/webhook/alert", `{"text":"sirens","message_id":"dup-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate is not an error, got status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["duplicate"] != true || body["success"] != true {
		t.Fatalf("expected duplicate marker, got %v", body)
	}
	if d.count != sent {
		t.Fatal("duplicate must not trigger deliveries")
	}
}

func TestNewsEndpointSourceLang(t *testing.T) {
	srv, _ := newTestServer()
	router := srv.Router()

	rec := post(t, router, "/webhook/news", `{"text":"noticias","source_lang":"es","message_id":"n1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = post(t, router, "/webhook/news", `{"text":"noticias","source_lang":"fr","message_id":"n2"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unsupported language must be rejected, got %d", rec.Code)
	}
}

func TestBadRequests(t *testing.T) {
	srv, _ := newTestServer()
	router := srv.Router()

	for name, body := range map[string]string{
		"empty text":   `{"text":"  ","message_id":"x"}`,
		"missing text": `{"message_id":"x"}`,
		"broken json":  `{"text": unquoted}`,
	} {
		rec := post(t, router, "/webhook/alert", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
		if decodeBody(t, rec)["success"] != false {
			t.Fatalf("%s: error responses must carry success=false", name)
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer()
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK && rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected health status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	stats := decodeBody(t, rec)
	if _, ok := stats["messages_sent"]; !ok {
		t.Fatalf("metrics payload missing counters: %v", stats)
	}
}
