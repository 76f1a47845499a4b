package patients

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rafaelmendoncavaz/duofisio-sub000/pkg/logging"
)

// Fetcher retrieves the patient list from the clinic backend.
type Fetcher interface {
	FetchPatients(ctx context.Context) ([]Patient, error)
}

// Handler serves the patient search over the cached list, mirroring
// the appointment flow: fetch replaces the cache wholesale, a failed
// fetch keeps the previous list.
type Handler struct {
	fetcher Fetcher
	logger  *logging.Logger

	mu   sync.RWMutex
	list []Patient
}

// NewHandler creates a patients handler.
func NewHandler(fetcher Fetcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{fetcher: fetcher, logger: logger}
}

// Refresh handles POST /patients/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	list, err := h.fetcher.FetchPatients(r.Context())
	if err != nil {
		h.logger.Error("patient fetch failed", "error", err)
		http.Error(w, "failed to fetch patients", http.StatusBadGateway)
		return
	}

	h.mu.Lock()
	h.list = list
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"count": len(list)})
}

// SearchResponse is the payload of GET /patients/search.
type SearchResponse struct {
	Patients []Patient `json:"patients"`
	Count    int       `json:"count"`
}

// Search handles GET /patients/search?name=&phone=&cpf=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := Query{
		Name:  r.URL.Query().Get("name"),
		Phone: r.URL.Query().Get("phone"),
		CPF:   r.URL.Query().Get("cpf"),
	}

	h.mu.RLock()
	list := h.list
	h.mu.RUnlock()

	matches := Search(list, q)
	if matches == nil {
		matches = []Patient{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SearchResponse{Patients: matches, Count: len(matches)})
}
