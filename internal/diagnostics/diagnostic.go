// Package diagnostics collects per-method errors, warnings and debug notes
// produced while inferring types.
package diagnostics

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/fatih/color"
)

type Severity int

const (
	Error Severity = iota
	Warning
	Debug
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Debug:
		return "debug"
	}
	return "error"
}

// DiagnosticError is one reported problem, scoped to a method.
type DiagnosticError struct {
	Code     ErrorCode
	Severity Severity
	Method   string
	Message  string
}

func (e *DiagnosticError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("%s [%s]: %s", e.Severity, e.Code, e.Message)
	}
	return fmt.Sprintf("%s [%s] in %s: %s", e.Severity, e.Code, e.Method, e.Message)
}

// NewError formats the template registered for code.
func NewError(code ErrorCode, method string, args ...interface{}) *DiagnosticError {
	msg := fmt.Sprint(args...)
	if tmpl, ok := templates[code]; ok {
		msg = fmt.Sprintf(tmpl, args...)
	}
	return &DiagnosticError{
		Code:     code,
		Severity: code.Severity(),
		Method:   method,
		Message:  msg,
	}
}

// Bag collects diagnostics. It is safe for concurrent use.
type Bag struct {
	mu          sync.Mutex
	diagnostics []*DiagnosticError
	errorCount  int
	warnCount   int
}

func NewBag() *Bag {
	return &Bag{}
}

func (b *Bag) Add(d *DiagnosticError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.diagnostics = append(b.diagnostics, d)
	switch d.Severity {
	case Error:
		b.errorCount++
	case Warning:
		b.warnCount++
	}
}

// Report adds a diagnostic built from code.
func (b *Bag) Report(code ErrorCode, method string, args ...interface{}) {
	b.Add(NewError(code, method, args...))
}

// Merge appends every diagnostic of other.
func (b *Bag) Merge(other *Bag) {
	for _, d := range other.Diagnostics() {
		b.Add(d)
	}
}

func (b *Bag) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount > 0
}

func (b *Bag) ErrorCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount
}

func (b *Bag) WarningCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.warnCount
}

// Diagnostics returns a copy of all diagnostics.
func (b *Bag) Diagnostics() []*DiagnosticError {
	b.mu.Lock()
	defer b.mu.Unlock()
	res := make([]*DiagnosticError, len(b.diagnostics))
	copy(res, b.diagnostics)
	return res
}

// Filter returns the diagnostics with the given code.
func (b *Bag) Filter(code ErrorCode) []*DiagnosticError {
	var res []*DiagnosticError
	for _, d := range b.Diagnostics() {
		if d.Code == code {
			res = append(res, d)
		}
	}
	return res
}

// Sorted returns the diagnostics ordered by method, then severity, then code.
func (b *Bag) Sorted() []*DiagnosticError {
	res := b.Diagnostics()
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Method != res[j].Method {
			return res[i].Method < res[j].Method
		}
		if res[i].Severity != res[j].Severity {
			return res[i].Severity < res[j].Severity
		}
		return res[i].Code < res[j].Code
	})
	return res
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	debugColor   = color.New(color.FgHiBlack)
)

// Emit writes the diagnostics to w. Debug notes are skipped unless withDebug
// is set. Colors follow color.NoColor.
func (b *Bag) Emit(w io.Writer, withDebug bool) {
	for _, d := range b.Sorted() {
		if d.Severity == Debug && !withDebug {
			continue
		}
		c := errorColor
		switch d.Severity {
		case Warning:
			c = warningColor
		case Debug:
			c = debugColor
		}
		c.Fprintf(w, "%s[%s]", d.Severity, d.Code)
		fmt.Fprintf(w, " %s: %s\n", d.Method, d.Message)
	}
}
