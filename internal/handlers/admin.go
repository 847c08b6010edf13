package handlers

import (
	"net/http"
	"strconv"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"

	"github.com/incridea/fest-backend/internal/search"
	"github.com/incridea/fest-backend/internal/store"
	"github.com/incridea/fest-backend/internal/workers"
)

// GET /api/admin/receipt-dlq
func ListReceiptDLQ(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := st.ListReceiptDLQ(c.Request.Context(), 100)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// POST /api/admin/receipt-dlq/:id/retry
func RetryReceiptDLQ(w *workers.ReceiptWorker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
			return
		}
		if err := w.RetryDLQ(c.Request.Context(), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "requeued"})
	}
}

// GET /api/admin/search?q=
func AdminSearch(client *es.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Query("q")
		if q == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
			return
		}
		hits, err := search.Query(c.Request.Context(), client, q, 50)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "search unavailable"})
			return
		}
		c.JSON(http.StatusOK, hits)
	}
}
