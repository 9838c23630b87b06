package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/david-dina/Crypto-PP-sub000/internal/application/services"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/presentation/middleware"
)

// WalletHandler handles HTTP requests for wallet ingestion and listing
type WalletHandler struct {
	ingest  *services.IngestService
	wallets *services.WalletService
	logger  *zap.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(ingest *services.IngestService, wallets *services.WalletService, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{
		ingest:  ingest,
		wallets: wallets,
		logger:  logger,
	}
}

// RegisterRoutes registers the wallet routes on a chi router
func (h *WalletHandler) RegisterRoutes(r chi.Router) {
	r.Route("/wallets", func(r chi.Router) {
		r.Post("/", h.SaveWallets)
		r.Get("/", h.ListWallets)
	})
}

// saveWalletsRequest is the POST /api/v1/wallets body
type saveWalletsRequest struct {
	Wallets []entities.WalletConnection `json:"wallets"`
}

// saveWalletsResponse is the POST /api/v1/wallets response. Skipped entries
// name every connection dropped from the batch with the reason, so partial
// success is visible rather than silent.
type saveWalletsResponse struct {
	Success bool                     `json:"success"`
	Data    []services.WalletDTO     `json:"data"`
	Skipped []services.SkippedWallet `json:"skipped"`
}

// SaveWallets handles POST /api/v1/wallets
func (h *WalletHandler) SaveWallets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.Principal(ctx)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req saveWalletsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Wallets) == 0 {
		h.respondError(w, http.StatusBadRequest, "Missing or invalid wallet data")
		return
	}

	result, err := h.ingest.Ingest(ctx, principal, req.Wallets)
	if err != nil {
		h.logger.Error("Failed to ingest wallet batch",
			zap.Error(err),
			zap.String("user_id", principal.UserID),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to save wallets")
		return
	}

	response := saveWalletsResponse{
		Success: true,
		Data:    make([]services.WalletDTO, 0, len(result.Wallets)),
		Skipped: result.Skipped,
	}
	if response.Skipped == nil {
		response.Skipped = []services.SkippedWallet{}
	}
	for _, wr := range result.Wallets {
		response.Data = append(response.Data, services.ToWalletDTO(wr.Wallet, wr.Holdings))
	}

	h.respondJSON(w, http.StatusOK, response)
}

// ListWallets handles GET /api/v1/wallets
func (h *WalletHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.Principal(ctx)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	response, err := h.wallets.List(ctx, principal, page, limit)
	if err != nil {
		h.logger.Error("Failed to list wallets",
			zap.Error(err),
			zap.String("user_id", principal.UserID),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch wallets")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func (h *WalletHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *WalletHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
