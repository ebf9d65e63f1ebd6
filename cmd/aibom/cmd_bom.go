package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/services"
)

var (
	exportFormat     string
	exportOut        string
	requireSignature bool
)

var (
	bomCmd = &cobra.Command{
		Use:   "bom",
		Short: "Build, inspect, export and sign BOM snapshots",
	}
	bomBuildCmd = &cobra.Command{
		Use:   "build <project> <root>...",
		Short: "Freeze the lineage closure of the roots into a snapshot",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runBomBuild,
	}
	bomHistoryCmd = &cobra.Command{
		Use:   "history <project>",
		Short: "List a project's snapshots, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runBomHistory,
	}
	bomShowCmd = &cobra.Command{
		Use:   "show <bom-id>",
		Short: "Print a snapshot with its component records",
		Args:  cobra.ExactArgs(1),
		RunE:  runBomShow,
	}
	bomDiffCmd = &cobra.Command{
		Use:   "diff <from-id> <to-id>",
		Short: "Show components and edges added or removed between two snapshots",
		Args:  cobra.ExactArgs(2),
		RunE:  runBomDiff,
	}
	bomExportCmd = &cobra.Command{
		Use:   "export <bom-id>",
		Short: "Render a snapshot as json, jsonld, yaml, cbor or c2pa",
		Args:  cobra.ExactArgs(1),
		RunE:  runBomExport,
	}
	bomSignCmd = &cobra.Command{
		Use:   "sign <bom-id>",
		Short: "Sign the snapshot's manifest digest with SIGNING_KEY_PATH",
		Args:  cobra.ExactArgs(1),
		RunE:  runBomSign,
	}
	bomSignaturesCmd = &cobra.Command{
		Use:   "signatures <bom-id>",
		Short: "Check every stored signature against the snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runBomSignatures,
	}
	bomCheckCmd = &cobra.Command{
		Use:   "check <bom-id>",
		Short: "Recompute the manifest digest and compare it with the snapshot id",
		Long: `Recomputes the manifest digest and compares it with the snapshot id.
Exits 2 when they differ. With --require-signature the snapshot is also
gated for deployment: a BOM containing model components must carry at least
one valid signature, otherwise the command exits 3.`,
		Args: cobra.ExactArgs(1),
		RunE: runBomCheck,
	}
	bomComplianceCmd = &cobra.Command{
		Use:   "compliance <bom-id>",
		Short: "Score the snapshot against the EU AI Act, NIST RMF and ISO 42001 control mapping",
		Args:  cobra.ExactArgs(1),
		RunE:  runBomCompliance,
	}
	mappingsCmd = &cobra.Command{
		Use:         "mappings",
		Short:       "Print the compliance control mapping",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE:        runMappings,
	}
)

func init() {
	bomExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "json, jsonld, yaml, cbor or c2pa")
	bomExportCmd.Flags().StringVar(&exportOut, "out", "", "write to this file instead of stdout")
	bomCheckCmd.Flags().BoolVar(&requireSignature, "require-signature", false, "fail unless a BOM with models carries a valid signature")

	bomCmd.AddCommand(bomBuildCmd, bomHistoryCmd, bomShowCmd, bomDiffCmd, bomExportCmd, bomSignCmd, bomSignaturesCmd, bomCheckCmd, bomComplianceCmd)
	rootCmd.AddCommand(bomCmd, mappingsCmd)
}

func runBomBuild(cmd *cobra.Command, args []string) error {
	roots, err := parseFingerprints(args[1:])
	if err != nil {
		return err
	}
	snapshot, created, err := application.Snapshots.Build(withActor(cmd.Context()), args[0], roots)
	if err != nil {
		return err
	}
	return printResult(cmd, map[string]any{"bom": snapshot.Summary(), "created": created})
}

func runBomHistory(cmd *cobra.Command, args []string) error {
	history, err := application.Snapshots.ListByProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, history)
}

func runBomShow(cmd *cobra.Command, args []string) error {
	view, err := application.Snapshots.View(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, view)
}

func runBomDiff(cmd *cobra.Command, args []string) error {
	diff, err := application.Snapshots.Diff(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return printResult(cmd, diff)
}

func runBomExport(cmd *cobra.Command, args []string) error {
	format, err := services.ParseExportFormat(exportFormat)
	if err != nil {
		return err
	}
	data, err := application.Export.Export(cmd.Context(), args[0], format)
	if err != nil {
		return err
	}
	if exportOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", exportOut, len(data))
	return nil
}

func runBomSign(cmd *cobra.Command, args []string) error {
	sig, err := application.Signing.Sign(withActor(cmd.Context()), args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, sig)
}

func runBomSignatures(cmd *cobra.Command, args []string) error {
	checks, err := application.Signing.VerifySignatures(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := printResult(cmd, checks); err != nil {
		return err
	}
	for _, check := range checks {
		if !check.Valid {
			return errMismatch
		}
	}
	return nil
}

func runBomCheck(cmd *cobra.Command, args []string) error {
	if requireSignature {
		check, err := application.Compliance.DeployCheck(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := printResult(cmd, check); err != nil {
			return err
		}
		switch {
		case !check.Intact:
			return errMismatch
		case !check.Passed:
			return errUnsigned
		}
		return nil
	}

	ok, digest, err := application.Snapshots.VerifyIntegrity(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := printResult(cmd, map[string]any{"bom_id": args[0], "digest": digest, "intact": ok}); err != nil {
		return err
	}
	if !ok {
		return errMismatch
	}
	return nil
}

func runBomCompliance(cmd *cobra.Command, args []string) error {
	report, err := application.Compliance.Report(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, report)
}

func runMappings(cmd *cobra.Command, args []string) error {
	return printResult(cmd, map[string]any{"mappings": domain.ComplianceMapping})
}
