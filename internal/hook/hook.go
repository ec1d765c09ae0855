// Package hook defines the events fired while a script is merged. A single
// callback receives every event and may edit the fields it cares about.
package hook

import "scriptmerge/internal/extractor"

// Event is implemented by every hook payload.
type Event interface {
	Name() string
}

// Func receives events. It runs synchronously on the building goroutine.
type Func func(Event)

// Fire calls f with e. A nil Func does nothing.
func (f Func) Fire(e Event) {
	if f != nil {
		f(e)
	}
}

// Cancelable is embedded by events that can veto the step they announce.
type Cancelable struct {
	Cancel bool
}

func (c *Cancelable) Canceled() bool { return c.Cancel }

// Canceler is satisfied by every event that embeds Cancelable.
type Canceler interface {
	Canceled() bool
}

// PathsEvent lets the callback rewrite the module search path before
// resolution starts.
type PathsEvent struct {
	Entry       string
	Paths       []string
	CopyShebang bool
	Clean       bool
}

// ShebangEvent fires after the shebang line is generated. Canceling omits it.
type ShebangEvent struct {
	Cancelable
	Entry       string
	Shebang     string
	CopyShebang bool
	Clean       bool
}

// PreludeEvent fires before the inline loader prelude is written.
type PreludeEvent struct {
	Cancelable
	Entry   string
	Prelude string
}

// FileEvent fires once per build before the entry script is scanned.
// Canceling yields an empty module table.
type FileEvent struct {
	Cancelable
	Path       string
	AddModules []string
	Exclusions []string
}

// ModuleEvent fires before a unit's imports are scanned, the entry script
// included. Canceling keeps an already inserted module in the table but
// skips its own imports. Exclusions rewritten here apply to the unit and
// everything reached through it.
type ModuleEvent struct {
	Cancelable
	Unit       extractor.SourceUnit
	Exclusions []string
}

// MainFileEvent fires before the entry script is wrapped as __main__.py.
// Pointing Dir at another directory makes its __main__.py the one used.
type MainFileEvent struct {
	Entry string
	Dir   string
	Clean bool
}

// MainContentEvent carries the generated __main__ emission so it can be
// rewritten.
type MainContentEvent struct {
	Entry    string
	Contents []byte
}

// InitFileEvent fires for every synthesized __init__.py. A non-empty
// Content gets a trailing newline.
type InitFileEvent struct {
	Cancelable
	Path    string
	Content string
}

func (*PathsEvent) Name() string       { return "paths" }
func (*ShebangEvent) Name() string     { return "shebang" }
func (*PreludeEvent) Name() string     { return "prelude" }
func (*FileEvent) Name() string        { return "file" }
func (*ModuleEvent) Name() string      { return "module" }
func (*MainFileEvent) Name() string    { return "main_file" }
func (*MainContentEvent) Name() string { return "main_content" }
func (*InitFileEvent) Name() string    { return "init_file" }

// Chain combines callbacks into one. They run in order and all see the
// same event.
func Chain(funcs ...Func) Func {
	var active []Func
	for _, f := range funcs {
		if f != nil {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(e Event) {
		for _, f := range active {
			f(e)
		}
	}
}
