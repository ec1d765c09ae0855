package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"scriptmerge/internal/procenv"
)

// Version is set via -ldflags.
var Version = "dev"

// app holds what every subcommand shares.
type app struct {
	cfgFile string
	verbose bool
	logger  *log.Logger
	env     *procenv.Env
}

func main() {
	root := newRootCmd(procenv.New())
	root.SetArgs(withDefaultCommand(root, os.Args[1:]))

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func newRootCmd(env *procenv.Env) *cobra.Command {
	a := &app{env: env}

	root := &cobra.Command{
		Use:   "scriptmerge",
		Short: "Merge a Python script and its local imports into a single file",
		Long: `scriptmerge follows the imports of a Python entry script, collects every
module found on the search path that is not part of the standard library,
and writes one self-contained script or zip application.

Examples:
  scriptmerge compilepy app.py -o app_merged.py
  scriptmerge compilepyz app.py -o app.pyz -x
  scriptmerge graph app.py --format mermaid`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = newLogger(cmd.ErrOrStderr(), a.verbose)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is scriptmerge.yaml or pyproject.toml next to the script)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newCompilePyCmd(a))
	root.AddCommand(newCompilePyzCmd(a))
	root.AddCommand(newCompileCmd(a))
	root.AddCommand(newGraphCmd(a))
	return root
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: "scriptmerge"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the scriptmerge version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

// withDefaultCommand routes arguments that do not start with a subcommand
// to the legacy compile command, so "scriptmerge app.py -z" keeps working.
func withDefaultCommand(root *cobra.Command, args []string) []string {
	if len(args) == 0 {
		return args
	}
	first := args[0]
	switch first {
	case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd,
		"-h", "--help", "--version":
		return args
	}
	for _, c := range root.Commands() {
		if c.Name() == first || c.HasAlias(first) {
			return args
		}
	}
	return append([]string{"compile"}, args...)
}
