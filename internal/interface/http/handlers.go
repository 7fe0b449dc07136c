package http

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/external/telegram"
	"github.com/yogakitties/yogakitties-bot/pkg/logger"
)

// SecretTokenHeader carries the webhook secret set with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth reports liveness, readiness checks and the registered stats.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Health.Check(r.Context())

	body := map[string]any{
		"status": status,
		"uptime": s.Uptime().Round(time.Second).String(),
	}
	for name, stat := range s.deps.Stats {
		body[name] = stat()
	}

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, body)
}

// handleReady answers 200 only when every check passes.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Health.Check(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// TELEGRAM WEBHOOK
// ══════════════════════════════════════════════════════════════════════════════

// handleWebhook decodes an update and hands it to the bot. Telegram retries
// anything but 2xx, so malformed updates are acknowledged and dropped.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.validSecret(r.Header.Get(SecretTokenHeader)) {
		s.logger.Warn("webhook request with a wrong secret token",
			"request_id", getRequestID(r.Context()))
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var update telegram.Update
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&update); err != nil {
		s.logger.Warn("failed to decode webhook update", logger.Err(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	s.deps.Updates.HandleUpdate(r.Context(), &update)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) validSecret(got string) bool {
	if s.config.WebhookSecret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.config.WebhookSecret)) == 1
}
