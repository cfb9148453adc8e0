package pipeline

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/funvibe/dextype/internal/fixture"
	"github.com/funvibe/dextype/internal/inference"
	"github.com/funvibe/dextype/internal/typesystem"
)

// MethodResult is the outcome for one method.
type MethodResult struct {
	Name   string
	Built  *fixture.Built
	Result *inference.Result
	// Err is set when inference of the method was aborted.
	Err        error
	Mismatches []Mismatch
}

// Mismatch is a variable whose inferred type differs from the expected one.
type Mismatch struct {
	Var  string
	Want typesystem.Type
	Got  typesystem.Type
}

func sortMismatches(list []Mismatch) {
	sort.Slice(list, func(i, j int) bool { return list[i].Var < list[j].Var })
}

func (r *MethodResult) Status() string {
	switch {
	case r.Err != nil:
		return "aborted"
	case len(r.Mismatches) > 0:
		return "mismatch"
	case r.Result == nil || !r.Result.Resolved:
		return "unresolved"
	}
	return "ok"
}

type FileReport struct {
	Path    string
	Errors  []error
	Methods []*MethodResult
}

// Report aggregates one run over many files.
type Report struct {
	RunID uuid.UUID
	Files []*FileReport
}

func NewReport() *Report {
	return &Report{RunID: uuid.New()}
}

// Add records a finished pipeline context.
func (r *Report) Add(ctx *PipelineContext) {
	fr := &FileReport{Path: ctx.FilePath, Errors: ctx.Errors}
	for _, res := range ctx.Results {
		if res != nil {
			fr.Methods = append(fr.Methods, res)
		}
	}
	r.Files = append(r.Files, fr)
}

// AddError records a file that never reached the pipeline.
func (r *Report) AddError(path string, err error) {
	r.Files = append(r.Files, &FileReport{Path: path, Errors: []error{err}})
}

// Summary counts methods by status.
type Summary struct {
	Files      int
	FileErrors int
	Methods    int
	Resolved   int
	Unresolved int
	Aborted    int
	Mismatched int
}

func (r *Report) Summary() Summary {
	s := Summary{Files: len(r.Files)}
	for _, f := range r.Files {
		s.FileErrors += len(f.Errors)
		for _, m := range f.Methods {
			s.Methods++
			switch m.Status() {
			case "ok":
				s.Resolved++
			case "unresolved":
				s.Unresolved++
			case "aborted":
				s.Aborted++
			case "mismatch":
				s.Mismatched++
			}
		}
	}
	return s
}

// Failed reports whether anything in the run needs attention.
func (r *Report) Failed() bool {
	s := r.Summary()
	return s.FileErrors > 0 || s.Unresolved > 0 || s.Aborted > 0 || s.Mismatched > 0
}

var (
	okColor      = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	headingColor = color.New(color.Bold)
)

// Write prints the report. With verbose set every variable's type is listed
// and debug notes are included.
func (r *Report) Write(w io.Writer, verbose bool) {
	for _, f := range r.Files {
		headingColor.Fprintln(w, f.Path)
		for _, err := range f.Errors {
			failColor.Fprint(w, "  error")
			fmt.Fprintf(w, " %v\n", err)
		}
		for _, m := range f.Methods {
			r.writeMethod(w, m, verbose)
		}
	}
	s := r.Summary()
	fmt.Fprintf(w, "run %s: %d methods, %d resolved, %d unresolved, %d aborted, %d mismatched\n",
		r.RunID, s.Methods, s.Resolved, s.Unresolved, s.Aborted, s.Mismatched)
}

func (r *Report) writeMethod(w io.Writer, m *MethodResult, verbose bool) {
	status := m.Status()
	c := failColor
	switch status {
	case "ok":
		c = okColor
	case "unresolved":
		c = warnColor
	}
	fmt.Fprint(w, "  ")
	c.Fprintf(w, "%-10s", status)
	fmt.Fprintf(w, " %s\n", m.Name)
	if m.Err != nil {
		fmt.Fprintf(w, "    %v\n", m.Err)
	}
	for _, mm := range m.Mismatches {
		fmt.Fprintf(w, "    %s: expected %s, got %s\n", mm.Var, mm.Want, mm.Got)
	}
	if verbose && m.Built != nil {
		names := make([]string, 0, len(m.Built.Vars))
		for name := range m.Built.Vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "    %s: %s\n", name, m.Built.Vars[name].Type())
		}
	}
	if m.Result != nil {
		m.Result.Diagnostics.Emit(&indentWriter{w: w, prefix: "    "}, verbose)
	}
}

// indentWriter prefixes every line written through it.
type indentWriter struct {
	w       io.Writer
	prefix  string
	midLine bool
}

func (iw *indentWriter) Write(p []byte) (int, error) {
	for i, b := range p {
		if !iw.midLine {
			if _, err := io.WriteString(iw.w, iw.prefix); err != nil {
				return i, err
			}
			iw.midLine = true
		}
		if _, err := iw.w.Write([]byte{b}); err != nil {
			return i, err
		}
		if b == '\n' {
			iw.midLine = false
		}
	}
	return len(p), nil
}
