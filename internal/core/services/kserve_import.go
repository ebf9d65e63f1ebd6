package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

type KServeImportResult struct {
	Namespace  string            `json:"namespace"`
	Name       string            `json:"name"`
	StorageURI string            `json:"storage_uri"`
	Component  *domain.Component `json:"component,omitempty"`
	Created    bool              `json:"created"`
	Error      string            `json:"error,omitempty"`
	Skipped    bool              `json:"skipped,omitempty"`
}

type KServeImportReport struct {
	Namespace string               `json:"namespace"`
	Results   []KServeImportResult `json:"results"`
	Imported  int                  `json:"imported"`
	Failed    int                  `json:"failed"`
}

// KServeImportService registers the model artifacts behind deployed KServe
// InferenceServices.
type KServeImportService struct {
	kserve ports.KServeClient
	ingest *IngestService
}

func NewKServeImportService(kserve ports.KServeClient, ingest *IngestService) *KServeImportService {
	return &KServeImportService{kserve: kserve, ingest: ingest}
}

func (s *KServeImportService) Import(ctx context.Context, namespace string) (*KServeImportReport, error) {
	if s.kserve == nil || !s.kserve.IsAvailable() {
		return nil, domain.ErrKServeNotAvailable
	}

	sources, err := s.kserve.ListModelSources(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("list kserve inferenceservices: %w", err)
	}

	report := &KServeImportReport{Namespace: namespace, Results: make([]KServeImportResult, 0, len(sources))}
	for _, src := range sources {
		result := KServeImportResult{Namespace: src.Namespace, Name: src.Name, StorageURI: src.StorageURI}
		if src.StorageURI == "" {
			result.Skipped = true
			report.Results = append(report.Results, result)
			continue
		}

		attrs := map[string]string{
			"kserve.namespace": src.Namespace,
			"kserve.name":      src.Name,
			"kserve.uid":       src.UID,
		}
		if src.ModelFormat != "" {
			attrs["kserve.model_format"] = src.ModelFormat
		}
		if src.RuntimeImage != "" {
			attrs["kserve.runtime_image"] = src.RuntimeImage
		}

		component, created, err := s.ingest.Ingest(ctx, IngestRequest{
			Name:           src.Namespace + "/" + src.Name,
			Type:           domain.ComponentTypeModel,
			SourceLocation: src.StorageURI,
			Attributes:     attrs,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).WithFields(log.Fields{
				"namespace":   src.Namespace,
				"name":        src.Name,
				"storage_uri": src.StorageURI,
			}).Warn("failed to import kserve model")
			result.Error = err.Error()
			report.Failed++
		} else {
			result.Component = component
			result.Created = created
			report.Imported++
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}
