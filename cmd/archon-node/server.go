package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/archon-systems/archon-core/pkg/apiproblem"
	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/federation"
	"github.com/archon-systems/archon-core/pkg/identity"
	"github.com/archon-systems/archon-core/pkg/orchestrator"
	"github.com/archon-systems/archon-core/pkg/tenant"
)

// api wraps a Node with the HTTP surface external clients (archonctl,
// a gateway) use to drive it. Every
// handler renders a component error as an RFC 7807 problem detail
// rather than leaking it raw.
type api struct {
	node   *Node
	logger *slog.Logger
}

func newMux(n *Node, logger *slog.Logger) *http.ServeMux {
	a := &api{node: n, logger: logger}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/tenants", a.handleTenantCreate)
	mux.HandleFunc("POST /v1/tenants/{id}/members", a.handleTenantAssign)

	mux.HandleFunc("POST /v1/identities", a.handleIdentityIssue)
	mux.HandleFunc("GET /v1/identities/{id}", a.handleIdentityResolve)
	mux.HandleFunc("POST /v1/identities/{id}/revoke", a.handleIdentityRevoke)
	mux.HandleFunc("POST /v1/tokens", a.handleTokenIssue)

	mux.HandleFunc("POST /v1/contracts", a.handleContractLoad)

	mux.HandleFunc("POST /v1/spans", a.handleSpanSubmit)
	mux.HandleFunc("POST /v1/spans/{id}/replay", a.handleSpanReplay)
	mux.HandleFunc("POST /v1/spans/{id}/revert", a.handleSpanRevert)

	mux.HandleFunc("POST /v1/federation/peers", a.handleFederationAddPeer)
	mux.HandleFunc("POST /v1/federation/peers/{id}/sync", a.handleFederationSyncNow)
	mux.HandleFunc("GET /v1/federation/peers/{id}", a.handleFederationStatus)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return archerr.Wrap(archerr.Validation, "api.malformed_body", "request body is not valid JSON", err)
	}
	return nil
}

// --- tenant ---

func (a *api) handleTenantCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID string `json:"owner_id"`
		Name    string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	t, err := a.node.tenants.Create(req.OwnerID, req.Name)
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *api) handleTenantAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IdentityID string `json:"identity_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	if err := a.node.tenants.AssignIdentity(r.PathValue("id"), req.IdentityID); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- identity ---

func (a *api) handleIdentityIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     string `json:"kind"`
		Handle   string `json:"handle"`
		TenantID string `json:"tenant_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	rec, err := a.node.identities.Issue(identity.Kind(req.Kind), req.Handle, req.TenantID)
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *api) handleIdentityResolve(w http.ResponseWriter, r *http.Request) {
	rec, err := a.node.identities.Resolve(r.PathValue("id"))
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *api) handleIdentityRevoke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		By string `json:"by"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	if err := a.node.identities.Revoke(r.PathValue("id"), req.By); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleTokenIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IdentityID string   `json:"identity_id"`
		TenantID   string   `json:"tenant_id"`
		Scopes     []string `json:"scopes"`
		TTLSeconds int      `json:"ttl_seconds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	token, err := a.node.tokens.Issue(req.IdentityID, req.TenantID, req.Scopes, ttl, time.Now())
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

// --- contract ---

func (a *api) handleContractLoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID string `json:"tenant_id"`
		Body     string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	id, err := a.node.contracts.Load(req.TenantID, []byte(req.Body))
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"contract_id": id})
}

// --- span ---

func (a *api) handleSpanSubmit(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	result, err := a.node.orchestrator.Submit(r.Context(), req)
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func requesterFromToken(a *api, tokenString string) (tenant.AuthToken, error) {
	claims, err := a.node.tokens.Validate(tokenString)
	if err != nil {
		return tenant.AuthToken{}, err
	}
	return tenant.AuthToken{IdentityID: claims.Subject, TenantID: claims.TenantID, Scopes: claims.Scopes, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (a *api) handleSpanReplay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	requester, err := requesterFromToken(a, req.Token)
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	result, err := a.node.orchestrator.Replay(r.Context(), requester, r.PathValue("id"))
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *api) handleSpanRevert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token  string `json:"token"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	requester, err := requesterFromToken(a, req.Token)
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	result, err := a.node.orchestrator.Revert(r.Context(), requester, r.PathValue("id"), req.Reason)
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// --- federation ---

func (a *api) handleFederationAddPeer(w http.ResponseWriter, r *http.Request) {
	var peer federation.Peer
	if err := decodeJSON(r, &peer); err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	if peer.AddedAt.IsZero() {
		peer.AddedAt = time.Now()
	}
	a.node.fedRegistry.Add(peer)
	writeJSON(w, http.StatusCreated, peer)
}

func (a *api) handleFederationSyncNow(w http.ResponseWriter, r *http.Request) {
	puller := &meshPuller{transport: a.node.transport, signer: nodeMeshSigner{identities: a.node.identities, identityID: a.node.nodeIdentity.ID}, sourceID: a.node.nodeIdentity.ID, timeout: 10 * time.Second}
	outcome, err := federation.SyncNow(r.Context(), a.node.fedEngine, a.node.fedRegistry, a.node.fedCursors, puller, r.PathValue("id"))
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *api) handleFederationStatus(w http.ResponseWriter, r *http.Request) {
	peer, err := a.node.fedRegistry.Get(r.PathValue("id"))
	if err != nil {
		apiproblem.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, peer)
}

// runServer brings up the HTTP API and a background federation sync
// loop, then blocks until ctx is cancelled (by a caught signal in
// main), draining in-flight requests before returning.
func runServer(ctx context.Context, n *Node, bindAddr string) error {
	logger := slog.Default()
	mux := newMux(n, logger)
	rl := newGlobalRateLimiter(n.cfg.RateLimitRPS, n.cfg.RateLimitBurst)
	srv := &http.Server{Addr: bindAddr, Handler: rl.Middleware(mux)}

	listenerCtx, cancelListener := context.WithCancel(ctx)
	defer cancelListener()
	go serveFederationRequests(listenerCtx, n, logger)
	go drainOutbox(listenerCtx, n.outboxStore, n.meshPublisher.Publish, 2*time.Second, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("archon-node: http api listening", "addr", bindAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
