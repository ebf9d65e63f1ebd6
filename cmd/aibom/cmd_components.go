package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/services"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	componentType  string
	componentName  string
	expectedDigest string
	algorithm      string
	sizeBytes      int64
	sourceLocation string
	attributes     map[string]string

	scanInclude     []string
	scanExclude     []string
	scanConcurrency int

	listLimit int
)

var (
	ingestCmd = &cobra.Command{
		Use:   "ingest <location>",
		Short: "Fingerprint the artifact at a path or URL and register it",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
	registerCmd = &cobra.Command{
		Use:   "register <fingerprint>",
		Short: "Register a component whose fingerprint was computed elsewhere",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegister,
	}
	scanCmd = &cobra.Command{
		Use:   "scan <dir>",
		Short: "Walk a directory and ingest every matching file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}
	showCmd = &cobra.Command{
		Use:   "show <fingerprint>",
		Short: "Print a registered component",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered components in registration order",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
)

func init() {
	ingestCmd.Flags().StringVarP(&componentType, "type", "t", "", "component type: model, dataset, code or other")
	ingestCmd.Flags().StringVarP(&componentName, "name", "n", "", "component name (defaults to the location)")
	ingestCmd.Flags().StringVar(&expectedDigest, "expect", "", "fail unless the content hashes to this fingerprint")
	ingestCmd.Flags().StringVar(&algorithm, "algorithm", "", "hash algorithm (defaults to FINGERPRINT_ALGORITHM)")
	ingestCmd.Flags().StringToStringVar(&attributes, "attr", nil, "extra attributes, key=value")
	_ = ingestCmd.MarkFlagRequired("type")

	registerCmd.Flags().StringVarP(&componentType, "type", "t", "", "component type")
	registerCmd.Flags().StringVarP(&componentName, "name", "n", "", "component name")
	registerCmd.Flags().Int64Var(&sizeBytes, "size", 0, "content size in bytes")
	registerCmd.Flags().StringVar(&sourceLocation, "source", "", "where the content can be re-read for verification")
	registerCmd.Flags().StringToStringVar(&attributes, "attr", nil, "extra attributes, key=value")
	_ = registerCmd.MarkFlagRequired("type")
	_ = registerCmd.MarkFlagRequired("name")

	scanCmd.Flags().StringSliceVar(&scanInclude, "include", nil, "glob patterns to include (default all files)")
	scanCmd.Flags().StringSliceVar(&scanExclude, "exclude", nil, "glob patterns to skip")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 4, "files hashed in parallel")
	scanCmd.Flags().StringToStringVar(&attributes, "attr", nil, "attributes added to every component")

	listCmd.Flags().StringVarP(&componentType, "type", "t", "", "only this component type")
	listCmd.Flags().StringVarP(&componentName, "name", "n", "", "only names matching this glob")
	listCmd.Flags().IntVar(&listLimit, "limit", 100, "maximum results (0 for all)")

	rootCmd.AddCommand(ingestCmd, registerCmd, scanCmd, showCmd, listCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	req := services.IngestRequest{
		Name:           componentName,
		Type:           domain.ComponentType(componentType),
		SourceLocation: args[0],
		Attributes:     attributes,
		Algorithm:      domain.Algorithm(algorithm),
	}
	if req.Name == "" {
		req.Name = args[0]
	}
	if expectedDigest != "" {
		fp, err := domain.ParseFingerprint(expectedDigest)
		if err != nil {
			return err
		}
		req.ExpectedFingerprint = fp
	}

	component, created, err := application.Ingest.Ingest(withActor(cmd.Context()), req)
	if err != nil {
		return err
	}
	return printResult(cmd, map[string]any{"component": component, "created": created})
}

func runRegister(cmd *cobra.Command, args []string) error {
	fp, err := domain.ParseFingerprint(args[0])
	if err != nil {
		return err
	}
	component, created, err := application.Registry.Register(withActor(cmd.Context()), domain.ComponentMetadata{
		Name:           componentName,
		Type:           domain.ComponentType(componentType),
		SizeBytes:      sizeBytes,
		SourceLocation: sourceLocation,
		Attributes:     attributes,
	}, fp)
	if err != nil {
		return err
	}
	return printResult(cmd, map[string]any{"component": component, "created": created})
}

func runScan(cmd *cobra.Command, args []string) error {
	report, err := application.Scanner.Scan(withActor(cmd.Context()), services.ScanRequest{
		Dir:         args[0],
		Include:     scanInclude,
		Exclude:     scanExclude,
		Concurrency: scanConcurrency,
		Attributes:  attributes,
	})
	if err != nil {
		return err
	}
	if err := printResult(cmd, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d files failed to ingest", report.Failed)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	fp, err := domain.ParseFingerprint(args[0])
	if err != nil {
		return err
	}
	component, err := application.Registry.Get(cmd.Context(), fp)
	if err != nil {
		return err
	}
	return printResult(cmd, component)
}

func runList(cmd *cobra.Command, args []string) error {
	components, err := application.Registry.Collect(cmd.Context(), services.ComponentFilter{
		Type:        domain.ComponentType(componentType),
		NamePattern: componentName,
	}, listLimit)
	if err != nil {
		return err
	}
	return printResult(cmd, components)
}
