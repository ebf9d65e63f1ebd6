package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ai-bom-service/internal/core/domain"
)

func printResult(cmd *cobra.Command, v any) error {
	switch outputFormat {
	case "yaml":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(toPlain(v))
	case "json", "":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q", outputFormat)
}

// toPlain round-trips v through JSON so yaml output uses the same field
// names and text forms as json output.
func toPlain(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func withActor(ctx context.Context) context.Context {
	if actor == "" {
		return ctx
	}
	return domain.WithActor(ctx, actor)
}

func parseFingerprints(in []string) ([]domain.Fingerprint, error) {
	out := make([]domain.Fingerprint, 0, len(in))
	for _, s := range in {
		fp, err := domain.ParseFingerprint(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s, err)
		}
		out = append(out, fp)
	}
	return out, nil
}
