package main

import (
	"context"

	"github.com/spf13/cobra"

	"ai-bom-service/internal/core/domain"
)

var (
	edgeRelation string
	maxDepth     int
)

var (
	edgeCmd = &cobra.Command{
		Use:   "edge",
		Short: "Record or retract lineage edges",
	}
	edgeAddCmd = &cobra.Command{
		Use:   "add <child> <parent>",
		Short: "Record that child was derived from parent",
		Args:  cobra.ExactArgs(2),
		RunE:  runEdgeAdd,
	}
	edgeRetractCmd = &cobra.Command{
		Use:   "retract <child> <parent>",
		Short: "Retract an active edge; the original assertion stays in the log",
		Args:  cobra.ExactArgs(2),
		RunE:  runEdgeRetract,
	}
	edgeListCmd = &cobra.Command{
		Use:   "list [fingerprint]",
		Short: "List active edges, optionally only those touching a component",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEdgeList,
	}
	ancestorsCmd = &cobra.Command{
		Use:   "ancestors <fingerprint>",
		Short: "Print everything the component was derived from",
		Args:  cobra.ExactArgs(1),
		RunE:  runAncestors,
	}
	descendantsCmd = &cobra.Command{
		Use:   "descendants <fingerprint>",
		Short: "Print everything derived from the component",
		Args:  cobra.ExactArgs(1),
		RunE:  runDescendants,
	}
)

func init() {
	for _, c := range []*cobra.Command{edgeAddCmd, edgeRetractCmd} {
		c.Flags().StringVarP(&edgeRelation, "relation", "r", domain.RelationDerivedFrom, "relation label, e.g. trained-on")
	}
	for _, c := range []*cobra.Command{ancestorsCmd, descendantsCmd} {
		c.Flags().IntVar(&maxDepth, "max-depth", -1, "hop limit; 0 is unbounded, -1 uses TRAVERSAL_MAX_DEPTH")
	}
	edgeCmd.AddCommand(edgeAddCmd, edgeRetractCmd, edgeListCmd)
	rootCmd.AddCommand(edgeCmd, ancestorsCmd, descendantsCmd)
}

func runEdgeAdd(cmd *cobra.Command, args []string) error {
	fps, err := parseFingerprints(args)
	if err != nil {
		return err
	}
	edge, err := application.Lineage.AddEdge(withActor(cmd.Context()), fps[0], fps[1], edgeRelation)
	if err != nil {
		return err
	}
	return printResult(cmd, edge)
}

func runEdgeRetract(cmd *cobra.Command, args []string) error {
	fps, err := parseFingerprints(args)
	if err != nil {
		return err
	}
	tombstone, err := application.Lineage.RetractEdge(withActor(cmd.Context()), fps[0], fps[1], edgeRelation)
	if err != nil {
		return err
	}
	return printResult(cmd, tombstone)
}

func runEdgeList(cmd *cobra.Command, args []string) error {
	var fp domain.Fingerprint
	if len(args) == 1 {
		parsed, err := domain.ParseFingerprint(args[0])
		if err != nil {
			return err
		}
		fp = parsed
	}
	edges, err := application.Lineage.Edges(cmd.Context(), fp)
	if err != nil {
		return err
	}
	return printResult(cmd, edges)
}

type walkFunc func(ctx context.Context, fp domain.Fingerprint, maxDepth int) (*domain.Traversal, error)

func runAncestors(cmd *cobra.Command, args []string) error {
	return runTraverse(cmd, args[0], application.Lineage.Ancestors)
}

func runDescendants(cmd *cobra.Command, args []string) error {
	return runTraverse(cmd, args[0], application.Lineage.Descendants)
}

func runTraverse(cmd *cobra.Command, arg string, walk walkFunc) error {
	fp, err := domain.ParseFingerprint(arg)
	if err != nil {
		return err
	}
	traversal, err := walk(cmd.Context(), fp, maxDepth)
	if err != nil {
		return err
	}
	return printResult(cmd, traversal)
}
