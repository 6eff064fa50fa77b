// Package dwarfrec reconstructs C++ type definitions from the DWARF debug
// information of ELF binaries.
package dwarfrec

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoDWARF indicates the binary carries no DWARF debug sections.
	ErrNoDWARF = errors.New("dwarfrec: no DWARF debug information")

	// ErrNotFound indicates a requested type has no definition in the
	// debug info.
	ErrNotFound = errors.New("dwarfrec: type not found")

	// ErrFileClosed indicates the binary has been closed.
	ErrFileClosed = errors.New("dwarfrec: file is closed")
)

// ResolveError provides detail about a failed reconstruction.
type ResolveError struct {
	Symbol  string // type name being reconstructed
	Message string // description of the failure
	Err     error  // underlying error, if any
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dwarfrec: resolving %s: %s: %v", e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("dwarfrec: resolving %s: %s", e.Symbol, e.Message)
}

func (e *ResolveError) Unwrap() error { return e.Err }
