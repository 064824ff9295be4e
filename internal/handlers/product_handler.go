package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"pharmacy-pos/internal/database"
	"pharmacy-pos/internal/middleware"
	"pharmacy-pos/internal/models"
	"pharmacy-pos/internal/pos"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductStore is what the product admin needs from the database.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, id uint, patch database.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	UpsertDiscount(ctx context.Context, productID uint, percentage decimal.Decimal, active bool) (*models.Discount, error)
	pos.StockSink
	pos.AuditSink
}

// Audit actions of the product admin.
const (
	auditModuleInventory = "INVENTORY"
	auditProductCreate   = "PRODUCT_CREATE"
	auditProductUpdate   = "PRODUCT_UPDATE"
	auditProductDelete   = "PRODUCT_DELETE"
	auditStockReceive    = "STOCK_RECEIVE"
	auditDiscountSet     = "DISCOUNT_SET"
)

type ProductHandler struct {
	store ProductStore
	log   *zap.Logger
}

func NewProductHandler(store ProductStore, log *zap.Logger) *ProductHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductHandler{store: store, log: log}
}

// Register mounts the admin routes on rg, which must already require the admin role.
func (h *ProductHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/products", h.GetProducts)
	rg.POST("/products", h.AddProduct)
	rg.PUT("/products/:id", h.UpdateProduct)
	rg.DELETE("/products/:id", h.DeleteProduct)
	rg.POST("/products/:id/receive", h.ReceiveStock)
	rg.PUT("/products/:id/discount", h.SetDiscount)
}

// audit is fire-and-forget: a failed entry is logged, the request still succeeds.
func (h *ProductHandler) audit(c *gin.Context, action, details string) {
	operatorID := middleware.OperatorID(c)
	if err := h.store.RecordAudit(c.Request.Context(), operatorID, action, auditModuleInventory, details); err != nil {
		h.log.Warn("audit entry not recorded", zap.String("action", action), zap.Error(err))
	}
}

func productID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Product ID"})
		return 0, false
	}
	return uint(id), true
}

// --- GET: List all products (including out of stock) ---
func (h *ProductHandler) GetProducts(c *gin.Context) {
	products, err := h.store.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

type productInput struct {
	Name        string          `json:"name" binding:"required"`
	Barcode     string          `json:"barcode"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock" binding:"gte=0"`
	UnitsPerBox int             `json:"units_per_box" binding:"gte=0"`
	BoxPrice    decimal.Decimal `json:"box_price"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// --- POST: Add a new product ---
func (h *ProductHandler) AddProduct(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if in.BoxPrice.IsNegative() || in.UnitPrice.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prices cannot be negative"})
		return
	}

	p := models.Product{
		Name:        in.Name,
		Barcode:     in.Barcode,
		Category:    in.Category,
		Stock:       in.Stock,
		UnitsPerBox: in.UnitsPerBox,
		BoxPrice:    in.BoxPrice,
		UnitPrice:   in.UnitPrice,
	}
	if err := h.store.CreateProduct(c.Request.Context(), &p); err != nil {
		respondError(c, err)
		return
	}
	h.audit(c, auditProductCreate, fmt.Sprintf("product %d %q stock %d", p.ID, p.Name, p.Stock))
	c.JSON(http.StatusCreated, p)
}

// --- PUT: Update price, stock or packaging ---
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	// Only the fields that were sent are updated (partial update)
	var patch database.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := validatePatch(patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.store.UpdateProduct(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit(c, auditProductUpdate, fmt.Sprintf("product %d", id))
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": product})
}

func validatePatch(p database.ProductPatch) error {
	switch {
	case p.Name != nil && *p.Name == "":
		return fmt.Errorf("name cannot be empty")
	case p.Stock != nil && *p.Stock < 0:
		return fmt.Errorf("stock cannot be negative")
	case p.UnitsPerBox != nil && *p.UnitsPerBox < 1:
		return fmt.Errorf("units per box must be at least 1")
	case p.BoxPrice != nil && p.BoxPrice.IsNegative(), p.UnitPrice != nil && p.UnitPrice.IsNegative():
		return fmt.Errorf("prices cannot be negative")
	}
	return nil
}

// --- DELETE: Remove a product ---
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.audit(c, auditProductDelete, fmt.Sprintf("product %d", id))
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

type receiveRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// --- POST: Goods received, in single units ---
func (h *ProductHandler) ReceiveStock(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be a positive number of units"})
		return
	}

	if err := h.store.DeductStock(c.Request.Context(), id, -req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	h.audit(c, auditStockReceive, fmt.Sprintf("product %d units %d", id, req.Quantity))
	c.JSON(http.StatusOK, gin.H{"message": "Stock received", "product_id": id, "units": req.Quantity})
}

type discountRequest struct {
	Percentage decimal.Decimal `json:"percentage"`
	Active     *bool           `json:"active"`
}

var hundred = decimal.NewFromInt(100)

// --- PUT: Set the product's discount ---
func (h *ProductHandler) SetDiscount(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if req.Percentage.IsNegative() || req.Percentage.GreaterThan(hundred) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Percentage must be between 0 and 100"})
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	d, err := h.store.UpsertDiscount(c.Request.Context(), id, req.Percentage, active)
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit(c, auditDiscountSet, fmt.Sprintf("product %d %s%% active %t", id, req.Percentage.String(), active))
	c.JSON(http.StatusOK, d)
}
