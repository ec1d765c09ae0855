package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"scriptmerge/internal/generator"
	"scriptmerge/internal/graph"
	"scriptmerge/internal/pipeline"
	"scriptmerge/internal/storage"
)

var graphFormats = []string{"table", "mermaid", "json"}

func newGraphCmd(a *app) *cobra.Command {
	var (
		flags  buildFlags
		format string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "graph <script>",
		Short: "Show the modules a script would be merged with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(graphFormats, format) {
				return fmt.Errorf("unknown format %q (want table, mermaid or json)", format)
			}
			req, err := a.resolve(cmd, args[0], &flags)
			if err != nil {
				return err
			}
			res, err := a.build(cmd.Context(), req, flags.report)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("db") {
				dbPath = req.cfg.DB
			}
			if dbPath != "" {
				if err := a.record(cmd, dbPath, res); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			switch format {
			case "table":
				renderTable(out, res)
			case "mermaid":
				gen := &generator.MermaidGenerator{}
				fmt.Fprint(out, gen.GenerateImportGraph(filepath.Base(res.Entry), res.Table))
			case "json":
				return renderJSON(out, res)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, mermaid or json")
	cmd.Flags().StringVar(&dbPath, "db", "", "record the build in this SQLite database")
	return cmd
}

func renderTable(w io.Writer, res *pipeline.Result) {
	stats := res.Table.Stats()

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Module", "Kind", "Path", "Size"})
	for _, m := range res.Table.Modules() {
		kind := "module"
		if m.IsPackage {
			kind = "package"
		}
		tbl.AppendRow(table.Row{m.Name, kind, m.RelPath, humanize.Bytes(uint64(len(m.Source)))})
	}
	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d modules", stats.Modules),
		fmt.Sprintf("%d packages", stats.Packages),
		fmt.Sprintf("%d imports", stats.Edges),
		humanize.Bytes(uint64(stats.SourceBytes)),
	})
	tbl.Render()
}

type graphDocument struct {
	Entry   string        `json:"entry"`
	Paths   []string      `json:"paths"`
	Imports []string      `json:"imports"`
	Modules []graphModule `json:"modules"`
	Edges   []graph.Edge  `json:"edges"`
}

type graphModule struct {
	*graph.Module
	Imports    []string `json:"imports"`
	ImportedBy []string `json:"imported_by"`
}

func renderJSON(w io.Writer, res *pipeline.Result) error {
	doc := graphDocument{
		Entry:   res.Entry,
		Paths:   res.Paths,
		Imports: nonNil(res.Table.GetDependencies(graph.MainName)),
		Modules: []graphModule{},
		Edges:   res.Table.Edges,
	}
	for _, m := range res.Table.Modules() {
		doc.Modules = append(doc.Modules, graphModule{
			Module:     m,
			Imports:    nonNil(res.Table.GetDependencies(m.Name)),
			ImportedBy: nonNil(res.Table.GetDependents(m.Name)),
		})
	}
	if doc.Edges == nil {
		doc.Edges = []graph.Edge{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

// record stores the build manifest and logs what changed since the last
// recorded build of the same entry.
func (a *app) record(cmd *cobra.Command, dbPath string, res *pipeline.Result) error {
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	prev, err := store.LatestBuild(ctx, res.Entry)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	mode := "inline"
	if res.Archive {
		mode = "archive"
	}
	cur := storage.NewManifest(res.Entry, mode, res.Table)
	id, err := store.SaveBuild(ctx, cur)
	if err != nil {
		return err
	}

	diff := storage.CompareManifests(prev, cur)
	if prev != nil && diff.Empty() {
		a.logger.Info("build recorded, no module changes", "id", id)
		return nil
	}
	a.logger.Info("build recorded", "id", id,
		"added", len(diff.Added), "removed", len(diff.Removed), "changed", len(diff.Changed))
	for _, name := range diff.Changed {
		a.logger.Debug("changed", "module", name)
	}
	return nil
}
