package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ai-bom-service/internal/core/domain"
)

var (
	modelExtensions = map[string]bool{
		".pt": true, ".ckpt": true, ".bin": true, ".h5": true,
		".onnx": true, ".safetensors": true, ".gguf": true,
	}
	datasetExtensions = map[string]bool{
		".csv": true, ".parquet": true, ".jsonl": true, ".json": true, ".tfrecord": true,
	}
	codeExtensions = map[string]bool{
		".py": true, ".go": true, ".ipynb": true,
	}
	codeManifests = map[string]bool{
		"requirements.txt": true, "pyproject.toml": true, "go.mod": true, "package.json": true,
	}
)

// Classify maps a file name to a component type, or "" when the file is not
// an AI artifact.
func Classify(name string) domain.ComponentType {
	base := strings.ToLower(filepath.Base(name))
	if codeManifests[base] {
		return domain.ComponentTypeCode
	}
	ext := filepath.Ext(base)
	switch {
	case modelExtensions[ext]:
		return domain.ComponentTypeModel
	case datasetExtensions[ext]:
		return domain.ComponentTypeDataset
	case codeExtensions[ext]:
		return domain.ComponentTypeCode
	}
	return ""
}

type ScanRequest struct {
	Dir         string
	Include     []string
	Exclude     []string
	Concurrency int
	Attributes  map[string]string
}

type ScanResult struct {
	Path      string            `json:"path"`
	Type      string            `json:"type"`
	Component *domain.Component `json:"component,omitempty"`
	Created   bool              `json:"created"`
	Error     string            `json:"error,omitempty"`
}

type ScanReport struct {
	Root    string       `json:"root"`
	Results []ScanResult `json:"results"`
	Failed  int          `json:"failed"`
}

type ScannerService struct {
	ingest *IngestService
}

func NewScannerService(ingest *IngestService) *ScannerService {
	return &ScannerService{ingest: ingest}
}

// Scan walks req.Dir, classifies each file and ingests the recognized ones
// in parallel. Per-file failures are reported, not returned.
func (s *ScannerService) Scan(ctx context.Context, req ScanRequest) (*ScanReport, error) {
	for _, p := range append(append([]string{}, req.Include...), req.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	root, err := filepath.Abs(req.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root: %w", err)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && (strings.HasPrefix(d.Name(), ".") || matchAny(req.Exclude, rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || Classify(path) == "" {
			return nil
		}
		if len(req.Include) > 0 && !matchAny(req.Include, rel) {
			return nil
		}
		if matchAny(req.Exclude, rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	report := &ScanReport{Root: root, Results: make([]ScanResult, 0, len(files))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			typ := Classify(rel)
			attrs := map[string]string{"scan.path": rel}
			for k, v := range req.Attributes {
				attrs[k] = v
			}
			component, created, err := s.ingest.Ingest(gctx, IngestRequest{
				Name:           rel,
				Type:           typ,
				SourceLocation: filepath.Join(root, filepath.FromSlash(rel)),
				Attributes:     attrs,
			})

			result := ScanResult{Path: rel, Type: string(typ), Component: component, Created: created}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				result.Error = err.Error()
				log.WithError(err).WithField("path", rel).Warn("scan: failed to ingest file")
			}

			mu.Lock()
			report.Results = append(report.Results, result)
			if err != nil {
				report.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Results, func(i, j int) bool { return report.Results[i].Path < report.Results[j].Path })
	log.WithFields(log.Fields{
		"root":   root,
		"files":  len(report.Results),
		"failed": report.Failed,
	}).Info("scan finished")
	return report, nil
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
