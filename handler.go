// File: handler.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"captchaAuth/internal/challenge"
	"captchaAuth/internal/render"
	"captchaAuth/internal/store"
)

const (
	sessionName  = "captcha-session"
	maxBodyBytes = 64 << 10

	msgNotFound = "Challenge expired or not found. Request a new challenge."
)

// AuditCounter is the read side of the verification audit log.
type AuditCounter interface {
	Counts(ctx context.Context) (map[string]map[string]int, error)
}

var successMessages = map[challenge.Kind]string{
	challenge.KindText:      "Correct!",
	challenge.KindImageGrid: "Correct! All images selected correctly.",
	challenge.KindSlider:    "Puzzle solved correctly!",
	challenge.KindDrag:      "All pieces placed correctly!",
	challenge.KindCheckbox:  "Verification complete.",
}

var mismatchMessages = map[challenge.Kind]string{
	challenge.KindText:      "Incorrect. Try again.",
	challenge.KindImageGrid: "Wrong selection. Try again.",
	challenge.KindSlider:    "Incorrect position. Try again.",
	challenge.KindDrag:      "Some pieces are not in the right position.",
	challenge.KindCheckbox:  "Human interaction required",
}

type server struct {
	engine   *challenge.Engine
	table    *store.Table[challenge.Solution]
	sessions sessions.Store
	images   render.DirSource
	audit    AuditCounter // nil when the audit log is off
	log      *zap.Logger
}

func (s *server) routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/challenge/{kind}/start", s.handleStart)
	mux.HandleFunc("POST /api/challenge/{kind}/verify", s.handleVerify)
	mux.HandleFunc("POST /api/token/verify", s.handleRedeem)
	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("GET /api/audit/stats", s.handleAuditStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// sessionKey is where the pending challenge id of one kind lives in the session.
func sessionKey(k challenge.Kind) string {
	return "challenge:" + string(k)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	kind, err := challenge.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	c, err := s.engine.Generate(r.Context(), kind, challenge.Overrides{})
	if err != nil {
		s.log.Error("generate challenge", zap.String("kind", string(kind)), zap.Error(err))
		http.Error(w, "failed to generate challenge", http.StatusInternalServerError)
		return
	}

	// 旧的 cookie 签名失效时 Get 仍会返回新 session
	session, _ := s.sessions.Get(r, sessionName)
	session.Values[sessionKey(kind)] = c.ID
	if err := session.Save(r, w); err != nil {
		s.log.Error("save session", zap.Error(err))
		http.Error(w, "failed to save session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	kind, err := challenge.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	var req VerifyRequest
	ans, _ := challenge.NewAnswer(kind)
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := json.Unmarshal(body, ans); err != nil {
		http.Error(w, "invalid answer", http.StatusBadRequest)
		return
	}

	session, _ := s.sessions.Get(r, sessionName)
	bound, _ := session.Values[sessionKey(kind)].(string)
	if bound == "" || bound != req.ChallengeID {
		writeJSON(w, http.StatusOK, VerifyResponse{Message: msgNotFound})
		return
	}
	delete(session.Values, sessionKey(kind))
	if err := session.Save(r, w); err != nil {
		s.log.Error("save session", zap.Error(err))
		http.Error(w, "failed to save session", http.StatusInternalServerError)
		return
	}

	token, err := s.engine.Complete(r.Context(), req.ChallengeID, ans)
	rsp := s.verifyResponse(kind, ans, err)
	rsp.Token = token
	writeJSON(w, http.StatusOK, rsp)
}

func (s *server) verifyResponse(kind challenge.Kind, ans challenge.Answer, err error) VerifyResponse {
	switch {
	case err == nil:
		return VerifyResponse{Success: true, Message: successMessages[kind]}
	case errors.Is(err, challenge.ErrMismatch):
		if g, ok := ans.(*challenge.GridAnswer); ok {
			if required := s.engine.Config().GridRequiredSelections; len(g.Indices) < required {
				return VerifyResponse{Message: fmt.Sprintf("Please select %d images.", required)}
			}
		}
		return VerifyResponse{Message: mismatchMessages[kind]}
	}
	return VerifyResponse{Message: msgNotFound}
}

// handleRedeem lets the protected form check a pass token. A token works once.
func (s *server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	pass, err := s.engine.Redeem(req.Token)
	if err != nil {
		writeJSON(w, http.StatusOK, TokenResponse{Message: "Invalid or expired token"})
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{
		Success: true,
		Message: "Verification successful",
		Kind:    string(pass.Kind),
	})
}

func (s *server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.images.Stats()
	if err != nil {
		s.log.Warn("cache stats", zap.String("dir", s.images.Root), zap.Error(err))
		http.Error(w, "failed to read image cache", http.StatusInternalServerError)
		return
	}
	rsp := CacheStatsResponse{CacheDir: s.images.Root, Categories: stats}
	for _, n := range stats {
		rsp.Total += n
	}
	writeJSON(w, http.StatusOK, rsp)
}

func (s *server) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		http.Error(w, "audit log disabled", http.StatusNotFound)
		return
	}
	counts, err := s.audit.Counts(r.Context())
	if err != nil {
		s.log.Error("audit stats", zap.Error(err))
		http.Error(w, "failed to read audit log", http.StatusInternalServerError)
		return
	}
	rsp := AuditStatsResponse{Kinds: counts}
	for _, results := range counts {
		for _, n := range results {
			rsp.Total += n
		}
	}
	writeJSON(w, http.StatusOK, rsp)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Pending: s.table.Len()})
}
