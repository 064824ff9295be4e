package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping() error
}

// SystemHandler reports whether the server and its database are up.
type SystemHandler struct {
	db      Pinger
	started time.Time
}

func NewSystemHandler(db Pinger) *SystemHandler {
	return &SystemHandler{db: db, started: time.Now()}
}

// --- GET: /health ---
func (h *SystemHandler) Health(c *gin.Context) {
	uptime := time.Since(h.started).Truncate(time.Second).String()
	if err := h.db.Ping(); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable", "uptime": uptime})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "online", "database": "ok", "uptime": uptime})
}
