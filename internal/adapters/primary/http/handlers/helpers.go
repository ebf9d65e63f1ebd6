package handlers

import (
	"fmt"
	"strconv"

	"ai-bom-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func fingerprintParam(c *gin.Context, name string) (domain.Fingerprint, error) {
	return domain.ParseFingerprint(c.Param(name))
}

func parseFingerprints(in []string) ([]domain.Fingerprint, error) {
	out := make([]domain.Fingerprint, 0, len(in))
	for _, s := range in {
		fp, err := domain.ParseFingerprint(s)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, nil
}

// intQuery reads an integer query parameter, returning fallback when absent.
func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}
