package diagnostics

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError_Template(t *testing.T) {
	d := NewError(ErrE001, "a.B.run", "r1v0", "r1v0 = phi r2v0, r3v0")
	assert.Equal(t, Error, d.Severity)
	assert.Equal(t, "type inference failed for r1v0: type not resolved in 'r1v0 = phi r2v0, r3v0'", d.Message)
	assert.Equal(t, "error [E001] in a.B.run: "+d.Message, d.Error())

	w := NewError(ErrW001, "", "search", errors.New("boom"))
	assert.Equal(t, Warning, w.Severity)
	assert.Equal(t, "warning [W001]: resolver search failed: boom", w.Error())

	assert.Equal(t, Debug, ErrD001.Severity())
}

func TestBag_Counts(t *testing.T) {
	bag := NewBag()
	assert.False(t, bag.HasErrors())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				bag.Report(ErrE002, "m", "depth")
			} else {
				bag.Report(ErrW002, "m")
			}
		}(i)
	}
	wg.Wait()

	assert.True(t, bag.HasErrors())
	assert.Equal(t, 10, bag.ErrorCount())
	assert.Equal(t, 10, bag.WarningCount())
	assert.Len(t, bag.Diagnostics(), 20)
	assert.Len(t, bag.Filter(ErrW002), 10)
}

func TestBag_MergeAndSort(t *testing.T) {
	a := NewBag()
	a.Report(ErrW002, "b.m")
	b := NewBag()
	b.Report(ErrD002, "a.m", "r0v0")
	b.Report(ErrE001, "b.m", "r1v0", "insn")
	a.Merge(b)

	sorted := a.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, ErrD002, sorted[0].Code)
	assert.Equal(t, ErrE001, sorted[1].Code)
	assert.Equal(t, ErrW002, sorted[2].Code)
}

func TestBag_Emit(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	bag := NewBag()
	bag.Report(ErrW003, "a.m", 6000, 5000)
	bag.Report(ErrD001, "a.m", "r0v0", "[java.util.List<T>]")

	var buf bytes.Buffer
	bag.Emit(&buf, false)
	assert.Equal(t, "warning[W003] a.m: multi-variable search skipped, vars limit reached: 6000 (expected less than 5000)\n", buf.String())

	buf.Reset()
	bag.Emit(&buf, true)
	assert.Contains(t, buf.String(), "debug[D001] a.m: raw type applied for r0v0")
}
