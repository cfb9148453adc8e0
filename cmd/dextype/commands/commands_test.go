package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classesYAML = `classes:
  - {name: a.Base}
  - {name: a.Derived, super: a.Base}
  - {name: a.K, interface: true}
`

const fixtureYAML = `methods:
  - class: a.Main
    name: moveToAncestor
    blocks:
      - insns:
          - {op: new-instance, result: "x", type: a.Derived}
          - {op: move, result: "y", args: ["x"]}
          - {op: invoke.static, method: {class: a.Util, name: take, args: [a.Base]}, args: ["y:a.Base"]}
          - {op: return}
    expect:
      x: %s
`

// run executes the root command with fresh flag state.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "dextype.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("workers: 2\n"), 0o644))

	configPath, verbose, noColor = "", false, false
	inferClasspath, inferWorkers = "", 0

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dextype dev")
}

func TestInfer_Passes(t *testing.T) {
	classes := writeFile(t, "classes.yaml", classesYAML)
	fix := writeFile(t, "ok.yaml", fmt.Sprintf(fixtureYAML, "a.Derived"))

	out, err := run(t, "infer", "--classpath", classes, fix)
	require.NoError(t, err)
	assert.Contains(t, out, "a.Main.moveToAncestor")
	assert.Contains(t, out, "ok")
}

func TestInfer_Mismatch(t *testing.T) {
	classes := writeFile(t, "classes.yaml", classesYAML)
	fix := writeFile(t, "bad.yaml", fmt.Sprintf(fixtureYAML, "a.Base"))

	out, err := run(t, "infer", "--classpath", classes, fix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 mismatched")
	assert.Contains(t, out, "mismatch")
}

func TestInfer_MissingFile(t *testing.T) {
	_, err := run(t, "infer", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 file errors")
}

func TestInfer_RequiresArgs(t *testing.T) {
	_, err := run(t, "infer")
	require.Error(t, err)
}

func TestClasspath_ImportAndShow(t *testing.T) {
	classes := writeFile(t, "classes.yaml", classesYAML)
	db := filepath.Join(t.TempDir(), "classes.db")

	out, err := run(t, "classpath", "import", classes, db)
	require.NoError(t, err)
	// java.lang.Object is always part of the graph
	assert.Contains(t, out, "imported 4 classes")

	out, err = run(t, "classpath", "show", db)
	require.NoError(t, err)
	assert.Contains(t, out, "class a.Derived : [a.Base java.lang.Object]")
	assert.Contains(t, out, "interface a.K")

	fix := writeFile(t, "ok.yaml", fmt.Sprintf(fixtureYAML, "a.Derived"))
	_, err = run(t, "infer", "--classpath", db, fix)
	require.NoError(t, err)
}

func TestInfer_VerboseListsTypes(t *testing.T) {
	classes := writeFile(t, "classes.yaml", classesYAML)
	fix := writeFile(t, "ok.yaml", fmt.Sprintf(fixtureYAML, "a.Derived"))

	out, err := run(t, "infer", "--classpath", classes, fix)
	require.NoError(t, err)
	assert.NotContains(t, out, "x: a.Derived")

	out, err = run(t, "--verbose", "infer", "--classpath", classes, fix)
	require.NoError(t, err)
	assert.Contains(t, out, "    x: a.Derived\n")
	assert.Contains(t, out, "    y: ")
}
