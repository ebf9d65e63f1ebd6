package handlers

import (
	"net/http"

	"ai-bom-service/internal/adapters/primary/http/dto"
	"ai-bom-service/internal/core/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) BuildBom(c *gin.Context) {
	var req dto.BuildSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	roots, err := parseFingerprints(req.Roots)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	snapshot, created, err := h.snapshotSvc.Build(c.Request.Context(), c.Param("id"), roots)
	if err != nil {
		log.WithError(err).WithField("project_id", c.Param("id")).Warn("build bom failed")
		mapDomainError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.ToBuildSnapshotResponse(snapshot, created))
}

// ListProjectBoms returns the project's BOM history, oldest first.
func (h *Handler) ListProjectBoms(c *gin.Context) {
	summaries, err := h.snapshotSvc.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.BomSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, dto.ToBomSummaryResponse(s))
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) GetBom(c *gin.Context) {
	view, err := h.snapshotSvc.View(c.Request.Context(), c.Param("bomId"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSnapshotResponse(view))
}

func (h *Handler) DiffBoms(c *gin.Context) {
	diff, err := h.snapshotSvc.Diff(c.Request.Context(), c.Param("bomId"), c.Param("otherId"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDiffResponse(diff))
}

// ExportBom renders the snapshot in ?format= (json, jsonld, yaml, cbor, c2pa).
func (h *Handler) ExportBom(c *gin.Context) {
	format, err := services.ParseExportFormat(c.Query("format"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	data, err := h.exportSvc.Export(c.Request.Context(), c.Param("bomId"), format)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.Data(http.StatusOK, format.ContentType(), data)
}

func (h *Handler) SignBom(c *gin.Context) {
	sig, err := h.signingSvc.Sign(c.Request.Context(), c.Param("bomId"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToSignatureResponse(sig))
}

// ListBomSignatures returns every stored signature with its verification
// outcome against the snapshot's current contents.
func (h *Handler) ListBomSignatures(c *gin.Context) {
	checks, err := h.signingSvc.VerifySignatures(c.Request.Context(), c.Param("bomId"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.SignatureResponse, 0, len(checks))
	for _, check := range checks {
		items = append(items, dto.ToSignatureCheckResponse(check))
	}
	c.JSON(http.StatusOK, items)
}
