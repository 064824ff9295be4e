package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pharmacy-pos/internal/middleware"
	"pharmacy-pos/internal/pos"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceiptLoader rebuilds receipts of recorded checkouts.
type ReceiptLoader interface {
	LoadReceipt(ctx context.Context, transactionID string) (*pos.Receipt, error)
}

// POSHandler serves the register: catalog, cart, payment and checkout of the calling operator.
type POSHandler struct {
	sessions *pos.SessionManager
	receipts ReceiptLoader
	timeout  time.Duration
	log      *zap.Logger
}

func NewPOSHandler(sessions *pos.SessionManager, receipts ReceiptLoader, checkoutTimeout time.Duration, log *zap.Logger) *POSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &POSHandler{sessions: sessions, receipts: receipts, timeout: checkoutTimeout, log: log}
}

// Register mounts the routes on rg, which must already be authenticated.
func (h *POSHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/catalog", h.GetCatalog)
	rg.POST("/catalog/refresh", h.RefreshCatalog)

	rg.GET("/cart", h.GetCart)
	rg.POST("/cart/items", h.AddItem)
	rg.PATCH("/cart/items/:productID/:mode", h.UpdateItem)
	rg.PUT("/cart/items/:productID/:mode/mode", h.SwitchItemMode)
	rg.DELETE("/cart/items/:productID/:mode", h.RemoveItem)
	rg.DELETE("/cart", h.ClearCart)

	rg.PUT("/sale-mode/:productID", h.SetSaleMode)
	rg.PUT("/payment", h.SetPayment)
	rg.POST("/checkout", h.Checkout)
	rg.GET("/receipts/:transactionID", h.GetReceipt)
}

// session resolves the caller's session. On failure the response is written and nil returned.
func (h *POSHandler) session(c *gin.Context) *pos.Session {
	operatorID := middleware.OperatorID(c)
	s, err := h.sessions.Get(c.Request.Context(), operatorID)
	if err != nil {
		h.fail(c, operatorID, err)
		return nil
	}
	return s
}

func (h *POSHandler) fail(c *gin.Context, operatorID uint, err error) {
	if errors.Is(err, pos.ErrNoOperator) {
		h.sessions.Reset(operatorID)
	}
	respondError(c, err)
}

func lineParams(c *gin.Context) (uint, pos.SaleMode, error) {
	id, err := strconv.ParseUint(c.Param("productID"), 10, 64)
	if err != nil {
		return 0, "", errors.New("invalid product id")
	}
	mode, err := pos.ParseSaleMode(c.Param("mode"))
	if err != nil {
		return 0, "", err
	}
	return uint(id), mode, nil
}

// --- GET: catalog with what the cart has not taken yet ---
func (h *POSHandler) GetCatalog(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	snap := s.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version":   snap.Version(),
		"loaded_at": snap.LoadedAt(),
		"items":     s.Catalog(),
	})
}

// --- POST: reload the catalog from the database ---
func (h *POSHandler) RefreshCatalog(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	if err := s.Refresh(c.Request.Context()); err != nil {
		h.fail(c, s.OperatorID(), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": s.Snapshot().Version()})
}

func (h *POSHandler) GetCart(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	c.JSON(http.StatusOK, s.Summary())
}

type addItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Mode      string `json:"mode"`
}

// --- POST: add one item; an empty mode uses the product's sale-mode preference ---
func (h *POSHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	var mode pos.SaleMode
	if req.Mode != "" {
		m, err := pos.ParseSaleMode(req.Mode)
		if err != nil {
			respondError(c, err)
			return
		}
		mode = m
	}

	s := h.session(c)
	if s == nil {
		return
	}
	line, err := s.Add(req.ProductID, mode)
	if err != nil {
		h.fail(c, s.OperatorID(), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"line": line, "cart": s.Summary()})
}

type updateItemRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// --- PATCH: change a line's quantity by delta ---
func (h *POSHandler) UpdateItem(c *gin.Context) {
	id, mode, err := lineParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	s := h.session(c)
	if s == nil {
		return
	}
	if err := s.UpdateQuantity(id, mode, req.Delta); err != nil {
		h.fail(c, s.OperatorID(), err)
		return
	}
	c.JSON(http.StatusOK, s.Summary())
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// --- PUT: move a line to the other sale mode ---
func (h *POSHandler) SwitchItemMode(c *gin.Context) {
	id, from, err := lineParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	to, err := pos.ParseSaleMode(req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}

	s := h.session(c)
	if s == nil {
		return
	}
	line, err := s.SwitchLineMode(id, from, to)
	if err != nil {
		h.fail(c, s.OperatorID(), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"line": line, "cart": s.Summary()})
}

func (h *POSHandler) RemoveItem(c *gin.Context) {
	id, mode, err := lineParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := h.session(c)
	if s == nil {
		return
	}
	if err := s.Remove(id, mode); err != nil {
		h.fail(c, s.OperatorID(), err)
		return
	}
	c.JSON(http.StatusOK, s.Summary())
}

func (h *POSHandler) ClearCart(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	if err := s.Clear(); err != nil {
		h.fail(c, s.OperatorID(), err)
		return
	}
	c.JSON(http.StatusOK, s.Summary())
}

// --- PUT: default sale mode for a product ---
func (h *POSHandler) SetSaleMode(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("productID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	mode, err := pos.ParseSaleMode(req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}

	s := h.session(c)
	if s == nil {
		return
	}
	effective, err := s.SetSaleMode(uint(id), mode)
	if err != nil {
		h.fail(c, s.OperatorID(), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": id, "mode": effective})
}

type paymentRequest struct {
	Method       string          `json:"method" binding:"required"`
	CashReceived decimal.Decimal `json:"cash_received"`
}

// --- PUT: payment method and cash handed over ---
func (h *POSHandler) SetPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	method, err := pos.ParsePaymentMethod(req.Method)
	if err != nil {
		respondError(c, err)
		return
	}

	s := h.session(c)
	if s == nil {
		return
	}
	if err := s.SetPayment(method, req.CashReceived); err != nil {
		h.fail(c, s.OperatorID(), err)
		return
	}
	c.JSON(http.StatusOK, s.Summary())
}

// --- POST: commit the cart as a sale ---
func (h *POSHandler) Checkout(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	receipt, err := s.Checkout(ctx)
	if err != nil {
		h.fail(c, s.OperatorID(), err)
		return
	}
	if !receipt.Consistent() {
		h.log.Warn("checkout recorded with inconsistencies",
			zap.String("transaction_id", receipt.TransactionID),
			zap.Int("stock_failures", len(receipt.StockFailures)),
			zap.Bool("audit_failed", receipt.AuditFailed))
	}
	c.JSON(http.StatusCreated, receipt)
}

// --- GET: reprint a receipt ---
func (h *POSHandler) GetReceipt(c *gin.Context) {
	receipt, err := h.receipts.LoadReceipt(c.Request.Context(), c.Param("transactionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}
