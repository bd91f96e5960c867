package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/swarmchat/orchestrator"
	"github.com/BaSui01/swarmchat/poll"
	"github.com/BaSui01/swarmchat/transcript"
	"github.com/BaSui01/swarmchat/types"
)

type api struct {
	store  *transcript.Store
	orch   *orchestrator.Orchestrator
	engine *poll.Engine
	logger *zap.Logger
}

func (a *api) routes(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /api/personas", a.handleListPersonas)
	mux.HandleFunc("POST /api/personas", a.handleRegisterPersona)

	mux.HandleFunc("GET /api/conversations", a.handleListConversations)
	mux.HandleFunc("POST /api/conversations", a.handleCreateConversation)
	mux.HandleFunc("GET /api/conversations/{id}", a.handleGetConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", a.handleTeardown)
	mux.HandleFunc("POST /api/conversations/{id}/messages", a.handleSendMessage)
	mux.HandleFunc("POST /api/conversations/{id}/messages/{messageID}/votes", a.handleVote)
	mux.HandleFunc("POST /api/conversations/{id}/retry", a.handleRetry)
	mux.HandleFunc("GET /api/conversations/{id}/export", a.handleExport)
	mux.HandleFunc("GET /api/conversations/{id}/events", a.handleEvents)

	return mux
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.Personas())
}

func (a *api) handleRegisterPersona(w http.ResponseWriter, r *http.Request) {
	var p types.Persona
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		a.writeError(w, types.NewError(types.ErrInvalidTurn, "malformed request body"))
		return
	}
	if p.Category == "" {
		p.Category = types.CategoryCustom
	}
	if err := a.store.RegisterPersona(p); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, p)
}

func (a *api) handleListConversations(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.Conversations())
}

func (a *api) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string   `json:"name"`
		PersonaIDs []string `json:"persona_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, types.NewError(types.ErrInvalidTurn, "malformed request body"))
		return
	}
	conv, err := a.orch.CreateConversation(r.Context(), req.Name, req.PersonaIDs)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, conv)
}

func (a *api) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	snap, err := a.store.Snapshot(r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, snap)
}

// handleTeardown detaches the conversation view: in-flight playback and
// generation abort at their next suspension point. The transcript itself
// is kept.
func (a *api) handleTeardown(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := a.store.State(id); err != nil {
		a.writeError(w, err)
		return
	}
	a.store.Teardown(id)
	a.orch.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, types.NewError(types.ErrInvalidTurn, "malformed request body"))
		return
	}
	msg, err := a.orch.SendHumanMessage(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusAccepted, msg)
}

func (a *api) handleVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionID string `json:"option_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, types.NewError(types.ErrInvalidTurn, "malformed request body"))
		return
	}
	msg, err := a.engine.CastHumanVote(r.Context(), r.PathValue("id"), r.PathValue("messageID"), req.OptionID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, msg)
}

func (a *api) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := a.store.State(id); err != nil {
		a.writeError(w, err)
		return
	}
	go a.orch.Retry(context.WithoutCancel(r.Context()), id)
	w.WriteHeader(http.StatusAccepted)
}

func (a *api) handleExport(w http.ResponseWriter, r *http.Request) {
	text, err := a.store.Export(r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("response encode failed", zap.Error(err))
	}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *api) writeError(w http.ResponseWriter, err error) {
	code := types.GetErrorCode(err)
	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = err.Error()
	a.writeJSON(w, httpStatus(code), body)
}

func httpStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrInvalidTurn:
		return http.StatusBadRequest
	case types.ErrInvalidState, types.ErrCapacityExceeded:
		return http.StatusConflict
	case types.ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
