package pipeline

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/funvibe/dextype/internal/classpath"
	"github.com/funvibe/dextype/internal/config"
	"github.com/funvibe/dextype/internal/fixture"
	"github.com/funvibe/dextype/internal/inference"
)

// Driver infers independent methods in parallel.
type Driver struct {
	cfg *config.Config
	log *slog.Logger
}

func NewDriver(cfg *config.Config, log *slog.Logger) *Driver {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Driver{cfg: cfg, log: log}
}

// Infer runs every method with at most cfg.Workers in flight. Results keep
// the order of methods. A method aborted by inference carries its error in
// its result; only cancellation fails the whole call.
func (d *Driver) Infer(ctx context.Context, h classpath.Hierarchy, methods []*fixture.Built) ([]*MethodResult, error) {
	engine := inference.New(inference.Options{Hierarchy: h, Logger: d.log, Config: d.cfg})
	results := make([]*MethodResult, len(methods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.cfg.Workers, 1))
	for i, m := range methods {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := engine.Infer(m.Method)
			if err != nil {
				d.log.Warn("inference aborted", "method", m.Method.String(), "error", err)
			}
			results[i] = &MethodResult{Name: m.Method.String(), Built: m, Result: res, Err: err}
			return nil
		})
	}
	return results, g.Wait()
}

// Run pushes each file through the full pipeline, one file at a time.
// Files that can't be read are recorded in the report.
func (d *Driver) Run(ctx context.Context, paths []string, base *classpath.Graph) *Report {
	report := NewReport()
	p := New(
		&ParseProcessor{},
		&ClasspathProcessor{Base: base},
		&BuildProcessor{},
		&InferProcessor{Driver: d},
		&VerifyProcessor{},
	)
	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			report.AddError(path, err)
			continue
		}
		pctx := NewPipelineContext(source)
		pctx.FilePath = path
		pctx.Context = ctx
		report.Add(p.Run(pctx))
	}
	return report
}
