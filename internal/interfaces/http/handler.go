package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bondtrader/internal/domain/entity/purchases"
)

const (
	apiBasePath         = "/api/v1"
	defaultPurchasesLim = 10
	maxPurchasesLimit   = 100
)

var errJournalDisabled = errors.New("purchase journal is not configured")

// DealReader returns the latest deal, or nil when there is none.
type DealReader interface {
	LastDeal(ctx context.Context) (*purchases.Deal, error)
}

// PurchaseReader lists the latest journal entries.
type PurchaseReader interface {
	LastPurchases(ctx context.Context, limit int) ([]purchases.Purchase, error)
}

// Handler serves the status API.
type Handler struct {
	router  *gin.Engine
	deals   DealReader
	journal PurchaseReader
}

// NewHandler builds the status API. journal may be nil.
func NewHandler(deals DealReader, journal PurchaseReader) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router:  router,
		deals:   deals,
		journal: journal,
	}
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	api := h.router.Group(apiBasePath)
	{
		api.GET("/health", h.health)
		api.GET("/status", h.status)
		api.GET("/purchases/last", h.lastPurchases)
	}
}

type statusResponse struct {
	LastDealAnnualYield *float64 `json:"last_deal_annual_yield"`
	LastDealDatetime    *string  `json:"last_deal_datetime"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// status reports the latest purchase; both fields are null before the first one.
func (h *Handler) status(c *gin.Context) {
	deal, err := h.deals.LastDeal(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}

	resp := statusResponse{}
	if deal != nil {
		yield := deal.AnnualYield
		at := deal.At.UTC().Format("2006-01-02T15:04:05.000000Z07:00")
		resp.LastDealAnnualYield = &yield
		resp.LastDealDatetime = &at
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) lastPurchases(c *gin.Context) {
	if h.journal == nil {
		writeError(c, http.StatusServiceUnavailable, errJournalDisabled)
		return
	}
	limit, err := parseLimit(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	list, err := h.journal.LastPurchases(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []purchases.Purchase{}
	}
	c.JSON(http.StatusOK, list)
}

func parseLimit(c *gin.Context) (int, error) {
	if c.Query("limit") == "" {
		return defaultPurchasesLim, nil
	}
	limit, err := parseIntQuery(c, "limit")
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	if limit <= 0 || limit > maxPurchasesLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxPurchasesLimit)
	}
	return limit, nil
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseIntQuery(c *gin.Context, key string) (int, error) {
	value := c.Query(key)
	if value == "" {
		return 0, fmt.Errorf("%s query param required", key)
	}
	return strconv.Atoi(value)
}
