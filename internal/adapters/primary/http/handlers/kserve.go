package handlers

import (
	"errors"
	"io"
	"net/http"

	"ai-bom-service/internal/adapters/primary/http/dto"

	"github.com/gin-gonic/gin"
)

// ImportKServe registers the models served by InferenceServices in the
// requested namespace ("" for the default, "*" for all).
func (h *Handler) ImportKServe(c *gin.Context) {
	var req dto.ImportKServeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.kserveSvc.Import(c.Request.Context(), req.Namespace)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
