package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrzlfz/stokcerdas-go/internal/application/services"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/persistence/database"
	"github.com/mrzlfz/stokcerdas-go/internal/presentation/http/middleware"
)

// InventoryHandlers serves the tenant-facing inventory reads and writes.
// Every route here sits behind the tenant middleware.
type InventoryHandlers struct {
	inventory *services.InventoryService
}

// NewInventoryHandlers creates the inventory handler set.
func NewInventoryHandlers(inventory *services.InventoryService) *InventoryHandlers {
	return &InventoryHandlers{inventory: inventory}
}

// ListProducts returns the tenant's active products, newest first.
func (h *InventoryHandlers) ListProducts(c *gin.Context) {
	tenantID := middleware.RequestTenant(c)
	limit := parseIntQuery(c, "limit", 20)
	offset := parseIntQuery(c, "offset", 0)

	products, err := h.inventory.ActiveProducts(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// ListLowStock returns inventory positions at or below their reorder point.
func (h *InventoryHandlers) ListLowStock(c *gin.Context) {
	tenantID := middleware.RequestTenant(c)

	items, err := h.inventory.LowStockItems(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// GetDashboard returns the aggregate numbers for the dashboard landing page.
func (h *InventoryHandlers) GetDashboard(c *gin.Context) {
	tenantID := middleware.RequestTenant(c)

	summary, err := h.inventory.DashboardSummary(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type upsertProductRequest struct {
	ID           string  `json:"id"`
	SKU          string  `json:"sku" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Price        float64 `json:"price"`
	IsActive     *bool   `json:"isActive"`
	Quantity     int     `json:"quantity"`
	ReorderPoint int     `json:"reorderPoint"`
}

// UpsertProduct creates or updates a product with its stock position.
func (h *InventoryHandlers) UpsertProduct(c *gin.Context) {
	tenantID := middleware.RequestTenant(c)

	var req upsertProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	product := database.Product{
		ID:       req.ID,
		TenantID: tenantID,
		SKU:      req.SKU,
		Name:     req.Name,
		Price:    req.Price,
		IsActive: active,
	}
	if err := h.inventory.UpsertProduct(c.Request.Context(), product, req.Quantity, req.ReorderPoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

type adjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// AdjustStock applies a signed quantity delta to one product's stock.
func (h *InventoryHandlers) AdjustStock(c *gin.Context) {
	productID := c.Param("productId")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}

	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	quantity, err := h.inventory.AdjustStock(c.Request.Context(), productID, req.Delta)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"productId": productID, "quantity": quantity})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
