package handlers

import (
	"ai-bom-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	registrySvc   *services.RegistryService
	ingestSvc     *services.IngestService
	lineageSvc    *services.LineageService
	snapshotSvc   *services.SnapshotService
	verifySvc     *services.VerificationService
	signingSvc    *services.SigningService
	complianceSvc *services.ComplianceService
	exportSvc     *services.ExportService
	kserveSvc     *services.KServeImportService
	auditSvc      *services.AuditService
}

func New(
	registrySvc *services.RegistryService,
	ingestSvc *services.IngestService,
	lineageSvc *services.LineageService,
	snapshotSvc *services.SnapshotService,
	verifySvc *services.VerificationService,
	signingSvc *services.SigningService,
	complianceSvc *services.ComplianceService,
	exportSvc *services.ExportService,
	kserveSvc *services.KServeImportService,
	auditSvc *services.AuditService,
) *Handler {
	return &Handler{
		registrySvc:   registrySvc,
		ingestSvc:     ingestSvc,
		lineageSvc:    lineageSvc,
		snapshotSvc:   snapshotSvc,
		verifySvc:     verifySvc,
		signingSvc:    signingSvc,
		complianceSvc: complianceSvc,
		exportSvc:     exportSvc,
		kserveSvc:     kserveSvc,
		auditSvc:      auditSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Components
	r.POST("/artifacts", h.IngestArtifact)
	r.POST("/components", h.RegisterComponent)
	r.GET("/components", h.ListComponents)
	r.GET("/components/:fingerprint", h.GetComponent)
	r.GET("/components/:fingerprint/ancestors", h.GetAncestors)
	r.GET("/components/:fingerprint/descendants", h.GetDescendants)

	// Lineage
	r.POST("/edges", h.AddEdge)
	r.GET("/edges", h.ListEdges)
	r.POST("/edges/retractions", h.RetractEdge)

	// BOM snapshots
	r.POST("/projects/:id/boms", h.BuildBom)
	r.GET("/projects/:id/boms", h.ListProjectBoms)
	r.GET("/boms/:bomId", h.GetBom)
	r.GET("/boms/:bomId/diff/:otherId", h.DiffBoms)
	r.GET("/boms/:bomId/export", h.ExportBom)
	r.POST("/boms/:bomId/signatures", h.SignBom)
	r.GET("/boms/:bomId/signatures", h.ListBomSignatures)
	r.GET("/boms/:bomId/compliance", h.GetBomCompliance)
	r.GET("/boms/:bomId/deploy-check", h.DeployCheckBom)

	// Compliance
	r.GET("/mappings", h.ListMappings)

	// Verification
	r.GET("/verify/:fingerprint", h.VerifyComponent)
	r.POST("/verify", h.VerifyAll)

	// Imports
	r.POST("/imports/kserve", h.ImportKServe)

	// Audit
	r.GET("/audit", h.ListAudit)
}
