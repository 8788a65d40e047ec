// Command flowc drives the flow runtime from the terminal: parse Code
// into a graph, run it through a temporal flow, dump the flow's
// stacks, or watch source files and re-push them as they change.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowlang/flow/internal/code"
	"github.com/flowlang/flow/internal/config"
	"github.com/flowlang/flow/internal/registry"
	"github.com/flowlang/flow/internal/snapshot"
	"github.com/flowlang/flow/internal/temporal"
	"github.com/flowlang/flow/internal/watch"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()
	cfg.FromEnv()

	root := &cobra.Command{
		Use:           "flowc",
		Short:         "Symbolic flow runtime",
		Long:          "flowc parses flow Code, executes it through a temporal flow, and inspects the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(newParseCmd(&cfg))
	root.AddCommand(newRunCmd(&cfg))
	root.AddCommand(newDumpCmd(&cfg))
	root.AddCommand(newWatchCmd(&cfg))
	return root
}

func newParseCmd(cfg *config.Config) *cobra.Command {
	var eval string
	var digest bool
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse Code and print the resulting graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd.InOrStdin(), args, eval)
			if err != nil {
				return err
			}
			graph, err := src.Parse(registry.Default(), cfg.Optimize)
			if err != nil {
				return err
			}
			if digest {
				sum, err := snapshot.Digest(graph)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(sum[:]))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), temporal.Serialize(graph))
			return nil
		},
	}
	cmd.Flags().StringVarP(&eval, "eval", "e", "", "parse this Code instead of a file")
	cmd.Flags().BoolVar(&digest, "digest", false, "print the graph's snapshot digest instead of its form")
	return cmd
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	var eval string
	var runFor time.Duration
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Push Code into a fresh flow and advance simulated time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd.InOrStdin(), args, eval)
			if err != nil {
				return err
			}
			flow := temporal.New(nil, registry.Default(), cfg.Temporal(cmd.ErrOrStderr()))
			effects, err := flow.PushCode(src)
			if err != nil {
				return err
			}
			if runFor > 0 {
				_, more, err := flow.Update(runFor)
				if err != nil {
					return err
				}
				_ = effects.SmartPush(more)
			}
			fmt.Fprintln(cmd.OutOrStdout(), temporal.Serialize(effects))
			return nil
		},
	}
	cmd.Flags().StringVarP(&eval, "eval", "e", "", "run this Code instead of a file")
	cmd.Flags().DurationVar(&runFor, "for", time.Second, "how much simulated time to advance")
	return cmd
}

func newDumpCmd(cfg *config.Config) *cobra.Command {
	var eval string
	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Push Code into a fresh flow and dump its stacks without executing further",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd.InOrStdin(), args, eval)
			if err != nil {
				return err
			}
			flow := temporal.New(nil, registry.Default(), cfg.Temporal(cmd.ErrOrStderr()))
			if _, err := flow.PushCode(src); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), flow.Dump())
			return nil
		},
	}
	cmd.Flags().StringVarP(&eval, "eval", "e", "", "dump this Code instead of a file")
	return cmd
}

func newWatchCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file>...",
		Short: "Watch source files and push them into a live flow on every change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			flow := temporal.New(nil, registry.Default(), cfg.Temporal(cmd.ErrOrStderr()))
			err := watch.Run(ctx, args, func(path string, src code.Code) error {
				effects, err := flow.PushCode(src)
				if err != nil {
					// A bad edit must not kill the session; the flow is
					// unchanged, report and keep watching.
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pushed %s -> %s\n", path, temporal.Serialize(effects))
				fmt.Fprint(cmd.OutOrStdout(), flow.Dump())
				return nil
			})
			if ctx.Err() != nil {
				return nil // interrupted: a clean exit
			}
			return err
		},
	}
	return cmd
}

func readSource(stdin io.Reader, args []string, eval string) (code.Code, error) {
	if eval != "" {
		return code.New(eval), nil
	}
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return code.Code{}, err
		}
		return code.New(string(data)), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return code.Code{}, err
	}
	return code.New(string(data)), nil
}
