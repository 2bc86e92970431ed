package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/identity"
)

// SecretHeader carries the shared secret of tier pushes
const SecretHeader = "X-Webhook-Secret"

// TierHandler applies a pushed tier change
type TierHandler interface {
	ApplyTier(code identity.Identity, tier features.Tier) (int64, error)
}

// TierPayload is the body of POST /tier
type TierPayload struct {
	UserCode string `json:"user_code"`
	Tier     string `json:"tier"`
}

type tierResponse struct {
	UserCode string `json:"user_code"`
	Tier     string `json:"tier"`
	Updated  int64  `json:"updated_links"`
}

// Server receives tier changes from the parQR back end and exposes health and metrics
type Server struct {
	tiers    TierHandler
	secret   string
	gatherer prometheus.Gatherer
	log      *slog.Logger

	server *http.Server
}

// NewServer creates a new webhook server
func NewServer(tiers TierHandler, secret string, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	return &Server{
		tiers:    tiers,
		secret:   secret,
		gatherer: gatherer,
		log:      log,
	}
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tier", s.handleTier)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", s.handleHealth)
	return mux
}

// Start starts the webhook server
func (s *Server) Start(ctx context.Context, port int) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if s.secret == "" {
		s.log.Warn("WEBHOOK_SECRET not set, tier endpoint disabled")
	}
	s.log.Info("starting webhook server", "port", port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	return s.server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleTier(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if !s.authorized(r) {
		s.log.Warn("unauthorized tier push", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload TierPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.log.Warn("invalid tier payload", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	code := strings.TrimSpace(payload.UserCode)
	if code == "" {
		s.log.Warn("missing user_code in tier push")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	tier := features.ParseTier(payload.Tier)
	updated, err := s.tiers.ApplyTier(identity.Identity(code), tier)
	if err != nil {
		s.log.Error("apply pushed tier", "user_code", code, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.log.Debug("tier push received", "user_code", code, "tier", tier, "updated_links", updated)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tierResponse{
		UserCode: code,
		Tier:     string(tier),
		Updated:  updated,
	})
}

// authorized rejects every push when no secret is configured
func (s *Server) authorized(r *http.Request) bool {
	if s.secret == "" {
		return false
	}
	got := r.Header.Get(SecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) == 1
}
