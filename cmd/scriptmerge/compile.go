package main

import (
	"github.com/spf13/cobra"
)

func newCompilePyCmd(a *app) *cobra.Command {
	var (
		flags  buildFlags
		mainPy bool
		initPy bool
	)
	cmd := &cobra.Command{
		Use:   "compilepy <script>",
		Short: "Compile into a single .py file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := a.resolve(cmd, args[0], &flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("main-py") {
				req.opts.IncludeMainPy = &mainPy
			}
			if cmd.Flags().Changed("init-py") {
				req.opts.IncludeInitPy = initPy
			}
			return a.run(cmd, req, &flags)
		},
	}
	flags.register(cmd)
	flags.registerOutput(cmd)
	cmd.Flags().BoolVarP(&mainPy, "main-py", "y", false, "run the script as a __main__.py module")
	cmd.Flags().BoolVar(&initPy, "init-py", false, "register an empty top-level __init__.py")
	return cmd
}

func newCompilePyzCmd(a *app) *cobra.Command {
	var (
		flags      buildFlags
		noMainPy   bool
		executable bool
	)
	cmd := &cobra.Command{
		Use:   "compilepyz <script>",
		Short: "Compile into a single .pyz zip application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := a.resolve(cmd, args[0], &flags)
			if err != nil {
				return err
			}
			req.opts.Archive = true
			if noMainPy {
				includeMainPy := false
				req.opts.IncludeMainPy = &includeMainPy
			}
			if cmd.Flags().Changed("executable") {
				req.executable = executable
			}
			return a.run(cmd, req, &flags)
		},
	}
	flags.register(cmd)
	flags.registerOutput(cmd)
	cmd.Flags().BoolVarP(&noMainPy, "no-main-py", "n", false, "store the script under its own name instead of __main__.py")
	cmd.Flags().BoolVarP(&executable, "executable", "x", false, "mark the output file executable")
	return cmd
}

// newCompileCmd is the original single entry point; -z switches it to
// archive output.
func newCompileCmd(a *app) *cobra.Command {
	var (
		flags  buildFlags
		pyzOut bool
	)
	cmd := &cobra.Command{
		Use:     "compile <script>",
		Aliases: []string{"compile_original"},
		Short:   "Compile into a .py or, with -z, a .pyz file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := a.resolve(cmd, args[0], &flags)
			if err != nil {
				return err
			}
			req.opts.Archive = pyzOut
			return a.run(cmd, req, &flags)
		},
	}
	flags.register(cmd)
	flags.registerOutput(cmd)
	cmd.Flags().BoolVarP(&pyzOut, "pyz-out", "z", false, "write a binary pyz file")
	return cmd
}
