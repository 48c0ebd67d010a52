package httpledger

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/provider"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
	"github.com/anam145/go-credential-sdk/internal/logger"
)

// Store is a ledger that also accepts DID registrations.
type Store interface {
	provider.Ledger
	provider.DIDRegistry
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves a Store over the ledger REST API.
type Handler struct {
	store Store
	log   *zap.Logger
}

// NewHandler creates a handler. A nil logger disables logging.
func NewHandler(store Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, log: log}
}

// Register mounts the ledger routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/dids/{did}", h.HandleGetDID)
	r.Post("/dids", h.HandlePutDID)
	r.Get("/vcs/{id}", h.HandleGetCredential)
	r.Get("/vcs/{id}/verify", h.HandleCredentialStatus)
	r.Post("/vcs", h.HandlePutCredential)
}

// HandleGetDID returns a DID document.
func (h *Handler) HandleGetDID(w http.ResponseWriter, r *http.Request) {
	did, ok := h.param(w, r, "did")
	if !ok {
		return
	}
	doc, err := h.store.GetDIDDocument(r.Context(), did)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandlePutDID registers a DID document.
func (h *Handler) HandlePutDID(w http.ResponseWriter, r *http.Request) {
	var doc model.DIDDocument
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid DID document"})
		return
	}
	if err := h.store.PutDIDDocument(r.Context(), &doc); err != nil {
		h.log.Info("DID registration rejected", logger.DID(doc.ID), logger.Err(err))
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"did": doc.ID})
}

// HandleGetCredential returns the stored bytes of a credential unchanged.
func (h *Handler) HandleGetCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := h.param(w, r, "id")
	if !ok {
		return
	}
	raw, err := h.store.GetCredential(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// HandleCredentialStatus evaluates a stored credential.
func (h *Handler) HandleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.param(w, r, "id")
	if !ok {
		return
	}
	status, err := h.store.GetCredentialStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandlePutCredential stores a signed credential.
func (h *Handler) HandlePutCredential(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
		return
	}
	if err := h.store.PutCredential(r.Context(), raw); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) param(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil || v == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return "", false
	}
	return v, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sdkerr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, sdkerr.ErrInvalidStructure):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.log.Error("ledger request failed",
			logger.RequestID(r.Header.Get(headerRequestID)),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
