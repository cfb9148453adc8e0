// Package pipeline drives inference over fixture files: each file is parsed,
// its methods are built and inferred in parallel, and the outcome is
// collected into a run report.
package pipeline

import (
	"context"

	"github.com/funvibe/dextype/internal/classpath"
	"github.com/funvibe/dextype/internal/fixture"
)

// PipelineContext carries one fixture file through the stages.
type PipelineContext struct {
	FilePath string
	Source   []byte

	// Context bounds the inference stage; nil means background.
	Context context.Context

	File      *fixture.File
	Hierarchy classpath.Hierarchy
	Methods   []*fixture.Built
	Results   []*MethodResult

	Errors []error
}

func NewPipelineContext(source []byte) *PipelineContext {
	return &PipelineContext{Source: source}
}

func (ctx *PipelineContext) context() context.Context {
	if ctx.Context == nil {
		return context.Background()
	}
	return ctx.Context
}

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Later stages skip what earlier ones could not produce, so the
		// errors of every stage are collected.
	}
	return ctx
}
