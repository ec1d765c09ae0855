package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"scriptmerge/internal/config"
	"scriptmerge/internal/pipeline"
	"scriptmerge/internal/watcher"
)

// buildFlags are shared by every command that builds an artifact.
type buildFlags struct {
	addModules     []string
	excludeModules []string
	addPaths       []string
	pythonBinary   string
	output         string
	copyShebang    bool
	clean          bool
	check          bool
	watch          bool
	report         string
}

func (f *buildFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.addModules, "add-python-module", "a", nil, "add a python module to the output (repeatable)")
	flags.StringArrayVarP(&f.excludeModules, "exclude-python-module", "e", nil, "exclude modules matching a regular expression (repeatable)")
	flags.StringArrayVarP(&f.addPaths, "add-python-path", "p", nil, "add a directory to the module search path (repeatable)")
	flags.StringVarP(&f.pythonBinary, "python-binary", "b", "", "python interpreter whose sys.path is searched")
	flags.BoolVarP(&f.copyShebang, "copy-shebang", "s", false, "copy the shebang line from the script")
	flags.BoolVarP(&f.clean, "clean", "c", false, "remove docstrings and comments")
	flags.StringVar(&f.report, "report", "", "write a JSON build report with stage timings to this file")
}

// registerOutput adds the flags of commands that produce an artifact.
func (f *buildFlags) registerOutput(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output-file", "o", "", "write the result to this file instead of stdout")
	flags.BoolVar(&f.check, "check", false, "compare with the existing output file and exit 1 if it is stale")
	flags.BoolVar(&f.watch, "watch", false, "rebuild whenever the script or one of its modules changes")
	cmd.MarkFlagsMutuallyExclusive("check", "watch")
}

// buildRequest is one fully resolved invocation.
type buildRequest struct {
	entry      string
	opts       pipeline.Options
	output     string
	executable bool
	cfg        *config.Config
}

// resolve layers flags over the project config. List flags append to the
// configured values, scalar flags win only when given.
func (a *app) resolve(cmd *cobra.Command, entry string, f *buildFlags) (*buildRequest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(a.cfgFile, filepath.Dir(entry), cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Source != "" {
		a.logger.Debug("config loaded", "path", cfg.Source)
	}

	changed := cmd.Flags().Changed
	opts := pipeline.Options{
		AddModules:    concat(cfg.AddModules, f.addModules),
		Exclude:       concat(cfg.ExcludeModules, f.excludeModules),
		AddPaths:      concat(cfg.AddPaths, f.addPaths),
		PythonBinary:  cfg.PythonBinary,
		CopyShebang:   cfg.CopyShebang,
		Clean:         cfg.Clean,
		IncludeMainPy: cfg.MainPy,
		IncludeInitPy: cfg.InitPy,
		Logger:        a.logger,
		Env:           a.env,
	}
	if changed("python-binary") {
		opts.PythonBinary = f.pythonBinary
	}
	if changed("copy-shebang") {
		opts.CopyShebang = f.copyShebang
	}
	if changed("clean") {
		opts.Clean = f.clean
	}

	req := &buildRequest{entry: entry, opts: opts, output: cfg.Output, executable: cfg.Executable, cfg: cfg}
	if changed("output-file") {
		req.output = f.output
	}
	return req, nil
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// run executes req in the mode selected by f.
func (a *app) run(cmd *cobra.Command, req *buildRequest, f *buildFlags) error {
	if f.watch {
		return a.watch(cmd.Context(), req)
	}

	res, err := a.build(cmd.Context(), req, f.report)
	if err != nil {
		return err
	}
	if f.check {
		return a.check(cmd.OutOrStdout(), req, res)
	}

	if req.output == "" {
		_, err := cmd.OutOrStdout().Write(res.Artifact)
		return err
	}
	if err := pipeline.WriteArtifact(req.output, res.Artifact, req.executable); err != nil {
		return err
	}
	a.logger.Info("wrote", "path", req.output, "size", humanize.Bytes(uint64(len(res.Artifact))))
	return nil
}

// build runs the pipeline once, saving a report when reportPath is set.
func (a *app) build(ctx context.Context, req *buildRequest, reportPath string) (*pipeline.Result, error) {
	opts := req.opts
	if reportPath != "" {
		opts.Report = pipeline.NewBuildReport()
	}
	res, err := pipeline.Build(ctx, req.entry, opts)
	if reportPath != "" {
		if saveErr := opts.Report.Save(reportPath, res); saveErr != nil {
			a.logger.Error("failed to save build report", "path", reportPath, "err", saveErr)
		}
	}
	return res, err
}

func (a *app) watch(ctx context.Context, req *buildRequest) error {
	if req.output == "" {
		return errors.New("--watch needs an output file")
	}
	build := func(ctx context.Context) (*pipeline.Result, error) {
		return pipeline.Build(ctx, req.entry, req.opts)
	}
	write := func(res *pipeline.Result) error {
		if err := pipeline.WriteArtifact(req.output, res.Artifact, req.executable); err != nil {
			return err
		}
		a.logger.Info("wrote", "path", req.output, "modules", res.Table.Len())
		return nil
	}

	w, err := watcher.New(req.entry, build, write, watcher.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.logger.Info("watching", "entry", req.entry)
	return w.Run(ctx)
}

// check compares the fresh artifact with the output file on disk. A stale
// or missing file yields exit code 1.
func (a *app) check(out io.Writer, req *buildRequest, res *pipeline.Result) error {
	if req.output == "" {
		return errors.New("--check needs an output file")
	}

	current, err := os.ReadFile(req.output)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", req.output, err)
	}
	if err == nil && bytes.Equal(current, res.Artifact) {
		a.logger.Info("up to date", "path", req.output)
		return nil
	}

	switch {
	case err != nil:
		fmt.Fprintf(out, "%s does not exist\n", req.output)
	case res.Archive:
		fmt.Fprintf(out, "%s differs: %s on disk, %s rebuilt\n",
			req.output, humanize.Bytes(uint64(len(current))), humanize.Bytes(uint64(len(res.Artifact))))
	default:
		fmt.Fprint(out, lineDiff(string(current), string(res.Artifact)))
	}
	return &ExitError{Code: 1, Err: fmt.Errorf("%s is out of date", req.output)}
}

// lineDiff renders a line-level diff with "-" and "+" prefixes. Unchanged
// runs are collapsed to a marker line.
func lineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var sb strings.Builder
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			fmt.Fprintf(&sb, "@@ %d unchanged lines @@\n", strings.Count(text, "\n")+1)
		case diffmatchpatch.DiffDelete:
			for _, line := range strings.Split(text, "\n") {
				sb.WriteString("-" + line + "\n")
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range strings.Split(text, "\n") {
				sb.WriteString("+" + line + "\n")
			}
		}
	}
	return sb.String()
}
