package pipeline

import (
	"fmt"

	"github.com/funvibe/dextype/internal/classpath"
	"github.com/funvibe/dextype/internal/fixture"
	"github.com/funvibe/dextype/internal/typesystem"
)

// ParseProcessor decodes the fixture source.
type ParseProcessor struct{}

func (p *ParseProcessor) Process(ctx *PipelineContext) *PipelineContext {
	f, err := fixture.Parse(ctx.Source, ctx.FilePath)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.File = f
	return ctx
}

// ClasspathProcessor layers the file's inline classes over a shared base
// hierarchy. The base is never modified.
type ClasspathProcessor struct {
	Base *classpath.Graph
}

func (p *ClasspathProcessor) Process(ctx *PipelineContext) *PipelineContext {
	var classes []classpath.Class
	if p.Base != nil {
		classes = p.Base.Classes()
	}
	if ctx.File != nil {
		classes = append(classes, ctx.File.Classes...)
	}
	ctx.Hierarchy = classpath.NewGraph(classes...)
	return ctx
}

// BuildProcessor turns every fixture method into an SSA graph. A method
// that fails to build is reported and skipped.
type BuildProcessor struct{}

func (p *BuildProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.File == nil {
		return ctx
	}
	for i := range ctx.File.Methods {
		built, err := ctx.File.Methods[i].Build()
		if err != nil {
			ctx.Errors = append(ctx.Errors, fmt.Errorf("%s: %w", ctx.FilePath, err))
			continue
		}
		ctx.Methods = append(ctx.Methods, built)
	}
	return ctx
}

// InferProcessor runs the driver over the built methods.
type InferProcessor struct {
	Driver *Driver
}

func (p *InferProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if len(ctx.Methods) == 0 {
		return ctx
	}
	hierarchy := ctx.Hierarchy
	if hierarchy == nil {
		hierarchy = classpath.NewGraph()
	}
	results, err := p.Driver.Infer(ctx.context(), hierarchy, ctx.Methods)
	if err != nil {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("%s: %w", ctx.FilePath, err))
	}
	ctx.Results = results
	return ctx
}

// VerifyProcessor compares inferred types with the fixture expectations.
type VerifyProcessor struct{}

func (p *VerifyProcessor) Process(ctx *PipelineContext) *PipelineContext {
	for _, res := range ctx.Results {
		if res == nil || res.Built == nil {
			continue
		}
		res.Mismatches = checkExpected(res.Built)
	}
	return ctx
}

func checkExpected(built *fixture.Built) []Mismatch {
	var res []Mismatch
	for name, want := range built.Expect {
		got := built.Vars[name].Type()
		if !typesystem.Equal(want, got) {
			res = append(res, Mismatch{Var: name, Want: want, Got: got})
		}
	}
	sortMismatches(res)
	return res
}
