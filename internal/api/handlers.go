package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"listing-importer/internal/db"
)

// Handlers contains HTTP handlers and their dependencies
type Handlers struct {
	db *db.DB
}

// NewHandlers creates a new Handlers instance
func NewHandlers(database *db.DB) *Handlers {
	return &Handlers{db: database}
}

// ListRecords handles GET /api/listings
func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := db.RecordFilter{
		Status:       q.Get("status"),
		PropertyType: q.Get("type"),
		Currency:     q.Get("currency"),
	}

	switch q.Get("provenance") {
	case "engine":
		filter.EngineOnly = true
	case "foreign":
		filter.ForeignOnly = true
	}

	if v := q.Get("min_amount"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val >= 0 {
			filter.MinAmount = &val
		}
	}
	if v := q.Get("max_amount"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val >= 0 {
			filter.MaxAmount = &val
		}
	}
	if v := q.Get("limit"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 && val <= 500 {
			filter.Limit = val
		}
	}
	if v := q.Get("offset"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			filter.Offset = val
		}
	}

	records, err := h.db.ListRecords(filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"listings": records,
		"count":    len(records),
	})
}

// GetRecord handles GET /api/listings/{publicID}
func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "publicID")
	if publicID == "" {
		http.Error(w, "missing public id", http.StatusBadRequest)
		return
	}

	rec, err := h.db.GetByPublicID(publicID)
	if err != nil {
		http.Error(w, "listing not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// Stats handles GET /api/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
