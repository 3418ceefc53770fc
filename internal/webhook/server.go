// Package webhook exposes the HTTP ingestion surface: push endpoints for
// alert and news events plus health and metrics read-outs. It shares the
// relay processor with the realtime listener, so both surfaces see one
// idempotency window.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"newsrelay/internal/language"
	"newsrelay/internal/logger"
	"newsrelay/internal/metrics"
)

type Processor interface {
	ProcessAlert(ctx context.Context, text, messageID string, src language.Code) (map[language.Code]bool, bool)
	ProcessNews(ctx context.Context, text, messageID string, src language.Code) (map[language.Code]bool, bool)
}

type Server struct {
	processor Processor
	alertLang language.Code
	newsLang  language.Code
	srv       *http.Server
}

func New(processor Processor, alertLang, newsLang language.Code) *Server {
	return &Server{
		processor: processor,
		alertLang: alertLang,
		newsLang:  newsLang,
	}
}

// Router builds the HTTP routing table. Exposed separately so tests can
// drive handlers without binding a socket.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(recoverMiddleware)
	r.HandleFunc("/webhook/alert", s.handleAlert).Methods(http.MethodPost)
	r.HandleFunc("/webhook/news", s.handleNews).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	return r
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	logger.Info("webhook server listening", "addr", addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

type eventRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	MessageID  string `json:"message_id"`
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEvent(w, r)
	if !ok {
		return
	}

	results, duplicate := s.processor.ProcessAlert(r.Context(), req.Text, req.MessageID, s.alertLang)
	respondProcessed(w, results, duplicate)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEvent(w, r)
	if !ok {
		return
	}

	src := s.newsLang
	if req.SourceLang != "" {
		src = language.Code(req.SourceLang)
		if !language.Valid(src) {
			writeError(w, http.StatusBadRequest, "unsupported source_lang: "+req.SourceLang)
			return
		}
	}

	results, duplicate := s.processor.ProcessNews(r.Context(), req.Text, req.MessageID, src)
	respondProcessed(w, results, duplicate)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{"status": "healthy"}
	if !metrics.Global.Healthy() {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
	}
	writeJSON(w, status, body)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Global.GetStats())
}

func decodeEvent(w http.ResponseWriter, r *http.Request) (eventRequest, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return req, false
	}
	return req, true
}

func respondProcessed(w http.ResponseWriter, results map[language.Code]bool, duplicate bool) {
	if duplicate {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"duplicate": true,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": results,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
