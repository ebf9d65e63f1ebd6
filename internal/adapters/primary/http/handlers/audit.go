package handlers

import (
	"net/http"
	"time"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAudit(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter := ports.AuditListFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Action:     domain.AuditAction(c.Query("action")),
		Limit:      limit,
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since: want RFC 3339"})
			return
		}
		filter.Since = since
	}

	entries, err := h.auditSvc.List(c.Request.Context(), filter)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries, "count": len(entries)})
}
