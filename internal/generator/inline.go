package generator

import (
	"bytes"
	"fmt"
	"strings"

	"scriptmerge/internal/graph"
	"scriptmerge/internal/hook"
)

const writeModuleFunc = "__scriptmerge_write_module"

// InlineEmitter produces a single Python script: shebang, prelude, one
// registration statement per module, then the entry script.
type InlineEmitter struct {
	opts Options
	head header
}

func NewInlineEmitter(opts Options) *InlineEmitter {
	return &InlineEmitter{opts: opts}
}

// Prepare renders the shebang and the prelude.
func (e *InlineEmitter) Prepare(entrySource []byte) {
	if e.head.prepared {
		return
	}
	e.head.prepared = true

	var out bytes.Buffer

	// 1. Shebang
	if line, ok := shebangLine(e.opts, entrySource); ok {
		out.WriteString(line)
	}

	// 2. Prelude
	ev := &hook.PreludeEvent{Entry: e.opts.Entry, Prelude: Prelude()}
	e.opts.Hook.Fire(ev)
	if !ev.Cancel {
		out.WriteString(ev.Prelude)
	}
	e.head.text = out.Bytes()
}

func (e *InlineEmitter) Emit(table *graph.ModuleTable, entrySource []byte) ([]byte, error) {
	e.Prepare(entrySource)

	var out bytes.Buffer
	out.Write(e.head.text)

	// 3. Root package initializer
	if e.opts.IncludeInitPy {
		if content, ok := initContent(e.opts, "__init__.py"); ok {
			out.WriteString(WriteModuleStatement("__init__.py", []byte(content)))
		}
	}

	// 4. Modules in discovery order
	for _, m := range table.Modules() {
		out.WriteString(WriteModuleStatement(m.RelPath, m.Source))
	}

	// 5. Entry script, last
	if e.opts.IncludeMainPy {
		source, err := mainSource(e.opts, entrySource)
		if err != nil {
			return nil, err
		}
		content := &hook.MainContentEvent{
			Entry:    e.opts.Entry,
			Contents: []byte(WriteModuleStatement("__main__.py", source)),
		}
		e.opts.Hook.Fire(content)
		out.Write(content.Contents)
		return out.Bytes(), nil
	}

	source, err := cleanSource(e.opts, e.opts.Entry, entrySource)
	if err != nil {
		return nil, err
	}
	out.WriteString(Indent(string(source)))
	return out.Bytes(), nil
}

// WriteModuleStatement is one registration line inside the prelude's
// with-block.
func WriteModuleStatement(relPath string, source []byte) string {
	return fmt.Sprintf("    %s(%s, %s)\n", writeModuleFunc, PyStrLiteral(relPath), PyBytesLiteral(source))
}

// Indent prefixes every line of s with four spaces. A trailing newline
// leaves an indented empty last line.
func Indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}
