package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/dextype/internal/classpath"
	"github.com/funvibe/dextype/internal/config"
)

const good = `
classes:
  - {name: a.Base}
  - {name: a.Derived, super: a.Base}
methods:
  - class: a.Main
    name: ints
    blocks:
      - insns:
          - {op: const, result: "a", args: ["#5:narrow"]}
          - {op: invoke.static, method: {class: a.Util, name: takeInt, args: [int]}, args: ["a:int"]}
          - {op: return}
    expect:
      a: int
  - class: a.Main
    name: objects
    blocks:
      - insns:
          - {op: new-instance, result: "x", type: a.Derived}
          - {op: invoke.static, method: {class: a.Util, name: take, args: [a.Base]}, args: ["x:a.Base"]}
          - {op: return}
    expect:
      x: a.Derived
`

func quietDriver(t *testing.T, cfgYAML string) *Driver {
	t.Helper()
	cfg := config.Default()
	if cfgYAML != "" {
		var err error
		cfg, err = config.ParseConfig([]byte(cfgYAML), "test.yaml")
		require.NoError(t, err)
	}
	return NewDriver(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPipeline_Run(t *testing.T) {
	ctx := NewPipelineContext([]byte(good))
	ctx.FilePath = "good.yaml"
	p := New(
		&ParseProcessor{},
		&ClasspathProcessor{},
		&BuildProcessor{},
		&InferProcessor{Driver: quietDriver(t, "")},
		&VerifyProcessor{},
	)
	out := p.Run(ctx)
	require.Empty(t, out.Errors)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "a.Main.ints", out.Results[0].Name)
	assert.Equal(t, "a.Main.objects", out.Results[1].Name)
	for _, r := range out.Results {
		assert.Equal(t, "ok", r.Status(), r.Name)
	}
}

func TestPipeline_ParseErrorStopsLaterStages(t *testing.T) {
	ctx := NewPipelineContext([]byte("methods: ["))
	ctx.FilePath = "bad.yaml"
	out := New(&ParseProcessor{}, &BuildProcessor{}, &InferProcessor{Driver: quietDriver(t, "")}).Run(ctx)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Error(), "parsing bad.yaml")
	assert.Nil(t, out.File)
	assert.Empty(t, out.Results)
}

func TestBuildProcessor_SkipsBrokenMethod(t *testing.T) {
	src := `
methods:
  - class: a.Main
    name: broken
    blocks:
      - insns:
          - {op: teleport}
  - class: a.Main
    name: fine
    blocks:
      - insns:
          - {op: return}
`
	ctx := NewPipelineContext([]byte(src))
	ctx.FilePath = "mixed.yaml"
	out := New(&ParseProcessor{}, &BuildProcessor{}).Run(ctx)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Error(), "a.Main.broken")
	require.Len(t, out.Methods, 1)
	assert.Equal(t, "a.Main.fine", out.Methods[0].Method.String())
}

func TestClasspathProcessor_LayersInlineClasses(t *testing.T) {
	base := classpath.NewGraph(classpath.Class{Name: "lib.Base"})
	ctx := NewPipelineContext(nil)
	ctx = (&ParseProcessor{}).Process(withSource(ctx, "classes: [{name: a.Impl, super: lib.Base}]\nmethods: []\n"))
	require.Empty(t, ctx.Errors)
	ctx = (&ClasspathProcessor{Base: base}).Process(ctx)

	assert.True(t, ctx.Hierarchy.IsInstanceOf("a.Impl", "lib.Base"))
	_, ok := base.Lookup("a.Impl")
	assert.False(t, ok)
}

func withSource(ctx *PipelineContext, src string) *PipelineContext {
	ctx.Source = []byte(src)
	ctx.FilePath = "inline.yaml"
	return ctx
}

func TestVerifyProcessor_ReportsMismatch(t *testing.T) {
	src := strings.Replace(good, "a: int", "a: long", 1)
	ctx := NewPipelineContext([]byte(src))
	ctx.FilePath = "wrong.yaml"
	out := New(
		&ParseProcessor{},
		&ClasspathProcessor{},
		&BuildProcessor{},
		&InferProcessor{Driver: quietDriver(t, "")},
		&VerifyProcessor{},
	).Run(ctx)

	require.Len(t, out.Results, 2)
	ints := out.Results[0]
	assert.Equal(t, "mismatch", ints.Status())
	require.Len(t, ints.Mismatches, 1)
	assert.Equal(t, "a", ints.Mismatches[0].Var)
	assert.Equal(t, "long", ints.Mismatches[0].Want.String())
	assert.Equal(t, "int", ints.Mismatches[0].Got.String())
}

func TestDriver_InferKeepsOrder(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("methods:\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, `  - class: a.Main
    name: m%d
    blocks:
      - insns:
          - {op: const, result: "a", args: ["#%d:narrow"]}
          - {op: invoke.static, method: {class: a.Util, name: takeInt, args: [int]}, args: ["a:int"]}
`, i, i+1)
	}
	ctx := NewPipelineContext([]byte(sb.String()))
	ctx.FilePath = "many.yaml"
	ctx = New(&ParseProcessor{}, &BuildProcessor{}).Run(ctx)
	require.Empty(t, ctx.Errors)

	d := quietDriver(t, "workers: 3\n")
	results, err := d.Infer(context.Background(), classpath.NewGraph(), ctx.Methods)
	require.NoError(t, err)
	require.Len(t, results, 40)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("a.Main.m%d", i), r.Name)
		assert.True(t, r.Result.Resolved)
	}
}

func TestDriver_InferCancelled(t *testing.T) {
	ctx := NewPipelineContext([]byte(good))
	ctx = New(&ParseProcessor{}, &BuildProcessor{}).Run(ctx)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := quietDriver(t, "workers: 1\n").Infer(cancelled, classpath.NewGraph(), ctx.Methods)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDriver_Run(t *testing.T) {
	dir := t.TempDir()
	goodPath := writeFile(t, dir, "good.yaml", good)
	badPath := writeFile(t, dir, "bad.yaml", "methods: [")
	missing := filepath.Join(dir, "missing.yaml")

	report := quietDriver(t, "").Run(context.Background(), []string{goodPath, badPath, missing}, nil)
	assert.NotEqual(t, uuid.Nil, report.RunID)
	require.Len(t, report.Files, 3)
	assert.Empty(t, report.Files[0].Errors)
	assert.Len(t, report.Files[1].Errors, 1)
	assert.Len(t, report.Files[2].Errors, 1)

	s := report.Summary()
	assert.Equal(t, 3, s.Files)
	assert.Equal(t, 2, s.FileErrors)
	assert.Equal(t, 2, s.Methods)
	assert.Equal(t, 2, s.Resolved)
	assert.True(t, report.Failed())
}

func TestReport_Write(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	dir := t.TempDir()
	path := writeFile(t, dir, "good.yaml", good)
	report := quietDriver(t, "").Run(context.Background(), []string{path}, nil)
	assert.False(t, report.Failed())

	var buf bytes.Buffer
	report.Write(&buf, true)
	out := buf.String()
	assert.Contains(t, out, path+"\n")
	assert.Contains(t, out, "  ok         a.Main.ints\n")
	assert.Contains(t, out, "    a: int\n")
	assert.Contains(t, out, "    x: a.Derived\n")
	assert.Contains(t, out, "2 methods, 2 resolved, 0 unresolved, 0 aborted, 0 mismatched")
	assert.Contains(t, out, report.RunID.String())
}

func TestIndentWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &indentWriter{w: &buf, prefix: "> "}
	fmt.Fprint(w, "one\ntw")
	fmt.Fprint(w, "o\nthree\n")
	assert.Equal(t, "> one\n> two\n> three\n", buf.String())
}
