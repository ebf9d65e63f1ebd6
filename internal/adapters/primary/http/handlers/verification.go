package handlers

import (
	"errors"
	"io"
	"net/http"

	"ai-bom-service/internal/adapters/primary/http/dto"
	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

// VerifyComponent re-hashes the component's source: 200 when verified, 409
// with the same body on mismatch.
func (h *Handler) VerifyComponent(c *gin.Context) {
	fp, err := fingerprintParam(c, "fingerprint")
	if err != nil {
		mapDomainError(c, err)
		return
	}

	result, err := h.verifySvc.Verify(c.Request.Context(), fp)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	status := http.StatusOK
	if !result.Verified() {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

// VerifyAll sweeps the registry, optionally filtered by type and name glob.
func (h *Handler) VerifyAll(c *gin.Context) {
	var req dto.VerifyAllRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.verifySvc.VerifyAll(c.Request.Context(), services.ComponentFilter{
		Type:        domain.ComponentType(req.Type),
		NamePattern: req.NamePattern,
	})
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
