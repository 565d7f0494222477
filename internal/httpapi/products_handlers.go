package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lukasbauer/vocalkart/internal/share"
	"github.com/lukasbauer/vocalkart/internal/store"
)

// handleListProducts lists the caller's newest products, or searches them by
// name when q is given.
func (r *Router) handleListProducts(w http.ResponseWriter, req *http.Request) {
	user := getAuthUser(req.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var (
		products []store.Product
		err      error
	)
	if q := strings.TrimSpace(req.URL.Query().Get("q")); q != "" {
		products, err = r.products.FindProductsByName(req.Context(), user.ID, q)
	} else {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		products, err = r.store.ListProducts(req.Context(), user.ID, limit)
	}
	if err != nil {
		r.logger.Printf("products: failed to list products: %v", err)
		http.Error(w, `{"error": "failed to list products"}`, http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []store.Product{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// handleShareDestinations returns the configured share menu.
func (r *Router) handleShareDestinations(w http.ResponseWriter, req *http.Request) {
	dests := []share.Destination{}
	if r.share != nil {
		dests = r.share.Destinations()
	}
	writeJSON(w, http.StatusOK, map[string]any{"destinations": dests})
}

// handleShareProduct publishes one of the caller's products to each
// requested destination. Destinations succeed or fail independently.
func (r *Router) handleShareProduct(w http.ResponseWriter, req *http.Request) {
	user := getAuthUser(req.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if r.share == nil {
		http.Error(w, `{"error": "sharing not configured"}`, http.StatusServiceUnavailable)
		return
	}

	var body struct {
		Destinations []string `json:"destinations"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	dests := share.ParseDestinations(body.Destinations)
	if len(dests) == 0 {
		http.Error(w, `{"error": "at least one valid destination is required"}`, http.StatusBadRequest)
		return
	}

	product, err := r.store.GetProduct(req.Context(), req.PathValue("id"))
	if err != nil {
		r.logger.Printf("share: failed to load product: %v", err)
		http.Error(w, `{"error": "failed to load product"}`, http.StatusInternalServerError)
		return
	}
	if product == nil || product.UserID != user.ID {
		http.Error(w, `{"error": "product not found"}`, http.StatusNotFound)
		return
	}

	artifacts, err := r.share.Generate(req.Context(), *product)
	if err != nil {
		r.logger.Printf("share: failed to generate artifacts: %v", err)
		http.Error(w, `{"error": "failed to prepare share"}`, http.StatusInternalServerError)
		return
	}

	failed := r.share.PublishAll(req.Context(), dests, *product, artifacts)
	results := make(map[share.Destination]string, len(dests))
	for _, d := range dests {
		switch err := failed[d]; {
		case err == nil:
			results[d] = "ok"
		case errors.Is(err, share.ErrUnknownDestination):
			results[d] = "not configured"
		default:
			results[d] = "failed"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"product_id": product.ID,
		"url":        artifacts.URL,
		"results":    results,
	})
}
