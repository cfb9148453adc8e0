package diagnostics

// ErrorCode identifies a diagnostic kind. The letter is the severity class:
// E for method errors, W for warnings, D for debug notes.
type ErrorCode string

const (
	// Errors
	ErrE001 ErrorCode = "E001" // type not resolved
	ErrE002 ErrorCode = "E002" // inference aborted by overflow
	ErrE003 ErrorCode = "E003" // inference failed with an internal error

	// Warnings
	ErrW001 ErrorCode = "W001" // resolver failed
	ErrW002 ErrorCode = "W002" // multi-variable search failed
	ErrW003 ErrorCode = "W003" // multi-variable search skipped
	ErrW004 ErrorCode = "W004" // finalization did not converge
	ErrW005 ErrorCode = "W005" // incompatible types merged

	// Debug notes
	ErrD001 ErrorCode = "D001" // raw type applied
	ErrD002 ErrorCode = "D002" // search result rejected
	ErrD003 ErrorCode = "D003" // move insertion refused
	ErrD004 ErrorCode = "D004" // instructions added by a resolver
	ErrD005 ErrorCode = "D005" // type variable casts restored
)

var templates = map[ErrorCode]string{
	ErrE001: "type inference failed for %s: type not resolved in '%s'",
	ErrE002: "type inference aborted: %v",
	ErrE003: "type inference failed with error: %v",
	ErrW001: "resolver %s failed: %v",
	ErrW002: "multi-variable type inference failed",
	ErrW003: "multi-variable search skipped, vars limit reached: %d (expected less than %d)",
	ErrW004: "type fixes did not converge after %d rounds",
	ErrW005: "incompatible types in '%s': %v",
	ErrD001: "raw type applied for %s, possible types: %s",
	ErrD002: "multi-variable search result rejected for %s",
	ErrD003: "failed to insert an additional move for type inference into block %s",
	ErrD004: "additional %d %s instructions added to help type inference",
	ErrD005: "restored %d type variable casts",
}

// Severity returns the severity implied by the code.
func (c ErrorCode) Severity() Severity {
	if len(c) == 0 {
		return Error
	}
	switch c[0] {
	case 'W':
		return Warning
	case 'D':
		return Debug
	}
	return Error
}
