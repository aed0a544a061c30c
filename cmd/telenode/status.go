package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the aggregated node status",
	Long: `Ask the node for the status of every component. Components that do
not answer within the node's request timeout are reported as such.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List registered components",
	Args:  cobra.NoArgs,
	RunE:  runComponents,
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "yaml", "Output format: json or yaml")
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), apiTimeout)
	defer cancel()

	doc, err := c.Status(ctx, statusFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), doc)
	return nil
}

func runComponents(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), apiTimeout)
	defer cancel()

	comps, err := c.Components(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tTYPE\tACTOR")
	for _, comp := range comps {
		fmt.Fprintf(w, "%s\t%s\t%s\n", comp.Label, comp.Type, comp.Actor)
	}
	return w.Flush()
}
