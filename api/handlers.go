// Package api exposes ingestion and the read side over HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"rightmove-ingest/models"
	"rightmove-ingest/services"
	"rightmove-ingest/storage"
	"rightmove-ingest/utils"
)

// BatchIngester runs one submission.
type BatchIngester interface {
	IngestText(ctx context.Context, text string) ([]models.Outcome, error)
}

// Handler serves the HTTP routes.
type Handler struct {
	ingester    BatchIngester
	store       storage.ListingStore
	recentLimit int
	logger      *utils.Logger
}

// NewHandler creates a Handler. recentLimit caps GET /listings.
func NewHandler(ingester BatchIngester, store storage.ListingStore, recentLimit int, logger *utils.Logger) *Handler {
	if recentLimit <= 0 {
		recentLimit = 200
	}
	return &Handler{ingester: ingester, store: store, recentLimit: recentLimit, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

type scrapeResponse struct {
	Results []models.Outcome `json:"results"`
}

type listingResponse struct {
	Listing *models.Listing `json:"listing"`
	Images  []string        `json:"images"`
}

// Router returns the mux with every route registered.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.HandleFunc("/scrape", h.handleScrape).Methods(http.MethodPost)
	r.HandleFunc("/listings", h.handleRecent).Methods(http.MethodGet)
	r.HandleFunc("/listings/{id:[0-9]+}", h.handleListing).Methods(http.MethodGet)
	return r
}

func (h *Handler) handleScrape(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.FormValue("urls"))
	if text == "" {
		text = strings.TrimSpace(r.FormValue("url"))
	}
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No URL(s) provided."})
		return
	}

	// A client disconnect must not cancel the batch.
	outcomes, err := h.ingester.IngestText(context.WithoutCancel(r.Context()), text)
	if err != nil {
		if errors.Is(err, services.ErrNoURLs) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No valid URLs found."})
			return
		}
		h.logger.Error("[api] ingest failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "ingestion failed"})
		return
	}

	writeJSON(w, http.StatusOK, scrapeResponse{Results: outcomes})
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	listings, err := h.store.GetRecent(r.Context(), h.recentLimit)
	if err != nil {
		h.logger.Error("[api] recent listings: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *Handler) handleListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Listing not found"})
		return
	}

	listing, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Listing not found"})
		return
	}
	if err != nil {
		h.logger.Error("[api] listing %d: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage unavailable"})
		return
	}

	images, err := h.store.GetImages(r.Context(), id)
	if err != nil {
		h.logger.Error("[api] images for listing %d: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, listingResponse{Listing: listing, Images: images})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("[api] %s %s in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
