package handlers

import (
	"net/http"

	"ai-bom-service/internal/adapters/primary/http/dto"
	"ai-bom-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func bindEdge(c *gin.Context) (child, parent domain.Fingerprint, relation string, ok bool) {
	var req dto.EdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return child, parent, "", false
	}
	fps, err := parseFingerprints([]string{req.Child, req.Parent})
	if err != nil {
		mapDomainError(c, err)
		return child, parent, "", false
	}
	return fps[0], fps[1], req.Relation, true
}

// AddEdge records that child was derived from parent.
func (h *Handler) AddEdge(c *gin.Context) {
	child, parent, relation, ok := bindEdge(c)
	if !ok {
		return
	}

	edge, err := h.lineageSvc.AddEdge(c.Request.Context(), child, parent, relation)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEdgeResponse(edge))
}

// RetractEdge appends a tombstone for an active edge.
func (h *Handler) RetractEdge(c *gin.Context) {
	child, parent, relation, ok := bindEdge(c)
	if !ok {
		return
	}

	tombstone, err := h.lineageSvc.RetractEdge(c.Request.Context(), child, parent, relation)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEdgeResponse(tombstone))
}

// ListEdges returns active edges, optionally only those touching ?fingerprint=.
func (h *Handler) ListEdges(c *gin.Context) {
	var fp domain.Fingerprint
	if raw := c.Query("fingerprint"); raw != "" {
		parsed, err := domain.ParseFingerprint(raw)
		if err != nil {
			mapDomainError(c, err)
			return
		}
		fp = parsed
	}

	edges, err := h.lineageSvc.Edges(c.Request.Context(), fp)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.EdgeResponse, 0, len(edges))
	for _, e := range edges {
		items = append(items, dto.ToEdgeResponse(e))
	}
	c.JSON(http.StatusOK, dto.ListEdgesResponse{Items: items, Count: len(items)})
}
