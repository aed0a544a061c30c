package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

var invokeOptions []string

var invokeCmd = &cobra.Command{
	Use:   "invoke <command words...>",
	Short: "Run a command on a node",
	Long: `Send a command to the node. The words are matched against the
node's command names by longest prefix; the rest become arguments.

Options are dotted keys, for example:

  telenode invoke spawn source csv -o import.read=conn.csv -o import.batch-size=512
  telenode invoke kill source-1
  telenode invoke send archive flush`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInvoke,
}

func init() {
	invokeCmd.Flags().StringArrayVarP(&invokeOptions, "option", "o", nil, "Option as key=value (repeatable)")
}

// parseOptions turns key=value pairs into nested settings.
func parseOptions(pairs []string) (types.Settings, error) {
	opts := types.Settings{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q, want key=value", p)
		}
		opts.Put(key, value)
	}
	return opts, nil
}

func runInvoke(cmd *cobra.Command, args []string) error {
	opts, err := parseOptions(invokeOptions)
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), apiTimeout)
	defer cancel()

	res, err := c.Invoke(ctx, strings.Join(args, " "), nil, opts)
	if err != nil {
		return err
	}
	switch v := res.Result.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	default:
		out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}
	return nil
}
