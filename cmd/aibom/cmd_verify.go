package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/core/services"
)

var (
	verifyAll bool
	keyDir    string
	kserveNS  string

	auditEntityType string
	auditEntityID   string
	auditAction     string
	auditLimit      int
)

var (
	verifyCmd = &cobra.Command{
		Use:   "verify [fingerprint]",
		Short: "Re-hash registered artifacts and compare with their fingerprints",
		Long: `Re-reads a component's source location and reports whether its bytes
still hash to the registered fingerprint. With --all, sweeps the registry
(optionally filtered by --type and --name). Exits 2 on any mismatch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runVerify,
	}
	keygenCmd = &cobra.Command{
		Use:         "keygen",
		Short:       "Generate an ed25519 signing key pair",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE:        runKeygen,
	}
	importKServeCmd = &cobra.Command{
		Use:   "import-kserve",
		Short: "Register the models served by KServe InferenceServices",
		Args:  cobra.NoArgs,
		RunE:  runImportKServe,
	}
	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Print recent audit log entries",
		Args:  cobra.NoArgs,
		RunE:  runAudit,
	}
)

func init() {
	verifyCmd.Flags().BoolVar(&verifyAll, "all", false, "verify every registered component")
	verifyCmd.Flags().StringVarP(&componentType, "type", "t", "", "with --all: only this component type")
	verifyCmd.Flags().StringVarP(&componentName, "name", "n", "", "with --all: only names matching this glob")

	keygenCmd.Flags().StringVar(&keyDir, "dir", ".", "directory for signing.key and signing.pub")

	importKServeCmd.Flags().StringVar(&kserveNS, "namespace", "", "namespace to import (\"*\" for all)")

	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum entries")
	auditCmd.Flags().StringVar(&auditEntityType, "entity-type", "", "component, edge or snapshot")
	auditCmd.Flags().StringVar(&auditEntityID, "entity", "", "only entries about this entity id")
	auditCmd.Flags().StringVar(&auditAction, "action", "", "only this action")

	rootCmd.AddCommand(verifyCmd, keygenCmd, importKServeCmd, auditCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := withActor(cmd.Context())
	if verifyAll {
		report, err := application.Verify.VerifyAll(ctx, services.ComponentFilter{
			Type:        domain.ComponentType(componentType),
			NamePattern: componentName,
		})
		if err != nil {
			return err
		}
		if err := printResult(cmd, report); err != nil {
			return err
		}
		if len(report.Mismatched) > 0 {
			return errMismatch
		}
		if len(report.Unavailable) > 0 {
			return fmt.Errorf("%d components could not be read", len(report.Unavailable))
		}
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("a fingerprint or --all is required")
	}
	fp, err := domain.ParseFingerprint(args[0])
	if err != nil {
		return err
	}
	result, err := application.Verify.Verify(ctx, fp)
	if err != nil {
		return err
	}
	if err := printResult(cmd, result); err != nil {
		return err
	}
	if !result.Verified() {
		return errMismatch
	}
	return nil
}

func runKeygen(cmd *cobra.Command, args []string) error {
	privPEM, pubPEM, keyID, err := services.GenerateSigningKey()
	if err != nil {
		return err
	}
	privPath := filepath.Join(keyDir, "signing.key")
	pubPath := filepath.Join(keyDir, "signing.pub")
	if _, err := os.Stat(privPath); err == nil {
		return fmt.Errorf("%s already exists", privPath)
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return printResult(cmd, map[string]string{"key_id": keyID, "private_key": privPath, "public_key": pubPath})
}

func runImportKServe(cmd *cobra.Command, args []string) error {
	report, err := application.KServe.Import(withActor(cmd.Context()), kserveNS)
	if err != nil {
		return err
	}
	return printResult(cmd, report)
}

func runAudit(cmd *cobra.Command, args []string) error {
	entries, err := application.Audit.List(cmd.Context(), ports.AuditListFilter{
		EntityType: auditEntityType,
		EntityID:   auditEntityID,
		Action:     domain.AuditAction(auditAction),
		Limit:      auditLimit,
	})
	if err != nil {
		return err
	}
	return printResult(cmd, entries)
}
