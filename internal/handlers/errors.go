package handlers

import (
	"context"
	"errors"
	"net/http"

	"pharmacy-pos/internal/database"
	"pharmacy-pos/internal/pos"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors to status codes. Unknown errors become a 500 with a
// generic message; the detail goes to the request log through c.Error.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var stockErr *pos.StockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":      stockErr.Error(),
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.Is(err, pos.ErrNoOperator):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No operator identified. Please log in again."})
	case errors.Is(err, pos.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "A checkout is being processed"})
	case errors.Is(err, pos.ErrCommitFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "The sale could not be recorded. The cart was kept, please try again."})
	case errors.Is(err, pos.ErrCatalogUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog is unavailable"})
	case errors.Is(err, pos.ErrEmptyCart),
		errors.Is(err, pos.ErrInsufficientCash),
		errors.Is(err, pos.ErrNegativeCash),
		errors.Is(err, pos.ErrInvalidPaymentMethod),
		errors.Is(err, pos.ErrInvalidSaleMode),
		errors.Is(err, pos.ErrLineNotFound),
		errors.Is(err, pos.ErrProductNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, database.ErrStockConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Not enough stock on hand"})
	case errors.Is(err, database.ErrProductInUse):
		c.JSON(http.StatusConflict, gin.H{"error": "Could not delete product. It is linked to past sales."})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timed out"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
