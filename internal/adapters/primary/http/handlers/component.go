package handlers

import (
	"context"
	"net/http"

	"ai-bom-service/internal/adapters/primary/http/dto"
	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// IngestArtifact reads the artifact at source_location, fingerprints it and
// registers the result.
func (h *Handler) IngestArtifact(c *gin.Context) {
	var req dto.IngestArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var expected domain.Fingerprint
	if req.ExpectedFingerprint != "" {
		fp, err := domain.ParseFingerprint(req.ExpectedFingerprint)
		if err != nil {
			mapDomainError(c, err)
			return
		}
		expected = fp
	}

	component, created, err := h.ingestSvc.Ingest(c.Request.Context(), services.IngestRequest{
		Name:                req.Name,
		Type:                domain.ComponentType(req.Type),
		SourceLocation:      req.SourceLocation,
		Attributes:          req.Attributes,
		ExpectedFingerprint: expected,
		Algorithm:           domain.Algorithm(req.Algorithm),
	})
	if err != nil {
		log.WithError(err).WithField("source", req.SourceLocation).Warn("ingest artifact failed")
		mapDomainError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.RegisterComponentResponse{Component: dto.ToComponentResponse(component), Created: created})
}

// RegisterComponent records a component whose fingerprint the caller
// already computed.
func (h *Handler) RegisterComponent(c *gin.Context) {
	var req dto.RegisterComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fp, err := domain.ParseFingerprint(req.Fingerprint)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	component, created, err := h.registrySvc.Register(c.Request.Context(), domain.ComponentMetadata{
		Name:           req.Name,
		Type:           domain.ComponentType(req.Type),
		SizeBytes:      req.SizeBytes,
		SourceLocation: req.SourceLocation,
		Attributes:     req.Attributes,
	}, fp)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.RegisterComponentResponse{Component: dto.ToComponentResponse(component), Created: created})
}

func (h *Handler) ListComponents(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultListLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	components, err := h.registrySvc.Collect(c.Request.Context(), services.ComponentFilter{
		Type:        domain.ComponentType(c.Query("type")),
		NamePattern: c.Query("name"),
	}, limit)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := dto.ToComponentResponses(components)
	c.JSON(http.StatusOK, dto.ListComponentsResponse{Items: items, Count: len(items)})
}

func (h *Handler) GetComponent(c *gin.Context) {
	fp, err := fingerprintParam(c, "fingerprint")
	if err != nil {
		mapDomainError(c, err)
		return
	}

	component, err := h.registrySvc.Get(c.Request.Context(), fp)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToComponentResponse(component))
}

func (h *Handler) GetAncestors(c *gin.Context) {
	h.traverse(c, "ancestors", h.lineageSvc.Ancestors)
}

func (h *Handler) GetDescendants(c *gin.Context) {
	h.traverse(c, "descendants", h.lineageSvc.Descendants)
}

func (h *Handler) traverse(
	c *gin.Context,
	direction string,
	walk func(context.Context, domain.Fingerprint, int) (*domain.Traversal, error),
) {
	fp, err := fingerprintParam(c, "fingerprint")
	if err != nil {
		mapDomainError(c, err)
		return
	}
	// -1 selects the configured default depth; 0 is unbounded.
	maxDepth, err := intQuery(c, "max_depth", -1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	traversal, err := walk(c.Request.Context(), fp, maxDepth)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTraversalResponse(traversal, direction))
}
