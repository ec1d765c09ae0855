package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scriptmerge/internal/extractor"
)

func TestFunc_Fire(t *testing.T) {
	var nilFunc Func
	assert.NotPanics(t, func() { nilFunc.Fire(&PathsEvent{}) })

	var seen []string
	f := Func(func(e Event) { seen = append(seen, e.Name()) })
	f.Fire(&ShebangEvent{})
	f.Fire(&ModuleEvent{})
	assert.Equal(t, []string{"shebang", "module"}, seen)
}

func TestChain(t *testing.T) {
	assert.Nil(t, Chain(nil, nil))

	cancelModules := Func(func(e Event) {
		if ev, ok := e.(*ModuleEvent); ok && ev.Unit.Module == "skip" {
			ev.Cancel = true
		}
	})
	var order []string
	record := Func(func(e Event) {
		if ev, ok := e.(*ModuleEvent); ok {
			order = append(order, ev.Unit.Module)
		}
	})

	chain := Chain(cancelModules, nil, record)
	skip := &ModuleEvent{Unit: extractor.SourceUnit{Module: "skip"}}
	keep := &ModuleEvent{Unit: extractor.SourceUnit{Module: "keep"}}
	chain.Fire(skip)
	chain.Fire(keep)

	assert.True(t, skip.Canceled())
	assert.False(t, keep.Canceled())
	assert.Equal(t, []string{"skip", "keep"}, order)
}
