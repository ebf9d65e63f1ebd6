package handlers

import (
	"context"
	"errors"
	"net/http"

	"ai-bom-service/internal/adapters/primary/http/dto"
	"ai-bom-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func mapDomainError(c *gin.Context, err error) {
	var (
		cycle    *domain.CycleError
		unknown  *domain.UnknownComponentError
		conflict *domain.MetadataConflictError
		mismatch *domain.MismatchError
	)

	switch {
	// Errors with structured detail
	case errors.As(err, &cycle):
		c.JSON(http.StatusConflict, gin.H{
			"error": domain.ErrCycleDetected.Error(),
			"edge": dto.EdgeKeyResponse{
				Child:    cycle.Child.String(),
				Parent:   cycle.Parent.String(),
				Relation: cycle.Relation,
			},
			"path": dto.FingerprintStrings(cycle.Path),
		})
	case errors.As(err, &unknown):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":        domain.ErrUnknownComponent.Error(),
			"fingerprints": dto.FingerprintStrings(unknown.Fingerprints),
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":       domain.ErrMetadataConflict.Error(),
			"fingerprint": conflict.Fingerprint.String(),
			"field":       conflict.Field,
			"existing":    conflict.Existing,
			"requested":   conflict.Requested,
		})
	case errors.As(err, &mismatch):
		c.JSON(http.StatusConflict, gin.H{
			"error":    domain.ErrMismatch.Error(),
			"expected": mismatch.Expected.String(),
			"actual":   mismatch.Actual.String(),
		})

	// Not found errors
	case errors.Is(err, domain.ErrComponentNotFound),
		errors.Is(err, domain.ErrSnapshotNotFound),
		errors.Is(err, domain.ErrEdgeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidComponent),
		errors.Is(err, domain.ErrInvalidFingerprint),
		errors.Is(err, domain.ErrUnsupportedAlgorithm),
		errors.Is(err, domain.ErrInvalidRelation),
		errors.Is(err, domain.ErrMissingProjectID),
		errors.Is(err, domain.ErrNoRoots),
		errors.Is(err, domain.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrIOUnavailable),
		errors.Is(err, domain.ErrTraversalAborted),
		errors.Is(err, domain.ErrSigningUnavailable),
		errors.Is(err, domain.ErrKServeNotAvailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})

	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
