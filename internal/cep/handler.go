package cep

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelmendoncavaz/duofisio-sub000/pkg/logging"
)

// Resolver is the lookup slice the handler needs.
type Resolver interface {
	Lookup(ctx context.Context, cep string) (*Address, error)
}

// Handler exposes the CEP lookup over HTTP for the address forms.
type Handler struct {
	resolver Resolver
	logger   *logging.Logger
}

// NewHandler wires the CEP handler.
func NewHandler(resolver Resolver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{resolver: resolver, logger: logger}
}

// Lookup handles GET /cep/{cep}.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "cep")

	addr, err := h.resolver.Lookup(r.Context(), code)
	switch {
	case errors.Is(err, ErrInvalidCEP):
		http.Error(w, "cep must be exactly 8 digits", http.StatusBadRequest)
		return
	case errors.Is(err, ErrNotFound):
		http.Error(w, "cep not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("cep lookup failed", "cep", code, "error", err)
		http.Error(w, "cep lookup failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(addr)
}

var _ Resolver = (*Client)(nil)
