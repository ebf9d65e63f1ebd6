package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListMappings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mappings": h.complianceSvc.Mappings()})
}

func (h *Handler) GetBomCompliance(c *gin.Context) {
	report, err := h.complianceSvc.Report(c.Request.Context(), c.Param("bomId"))
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// DeployCheckBom answers 200 when the snapshot may be deployed and 409 with
// the same body when it may not.
func (h *Handler) DeployCheckBom(c *gin.Context) {
	check, err := h.complianceSvc.DeployCheck(c.Request.Context(), c.Param("bomId"))
	if err != nil {
		mapDomainError(c, err)
		return
	}
	status := http.StatusOK
	if !check.Passed {
		status = http.StatusConflict
	}
	c.JSON(status, check)
}
