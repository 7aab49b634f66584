// Package logx is the table's cold-path diagnostic logger: construction,
// teardown, saturation, and runtime-failure messages only. It is never
// called from the probe hot path.
//
// Grounded directly on the teacher's root debug.go (dropError): a
// two-function, stdlib-"log"-backed helper that branches on nil rather
// than reaching for a structured logging library. The teacher never
// imports one anywhere in its own code — every logging call site in the
// repository goes through this same style of helper — so this is the one
// ambient concern carried forward on the standard library by design; see
// DESIGN.md for the justification.
package logx

import "log"

// Drop logs prefix and, if err is non-nil, err's message alongside it.
// Mirrors the teacher's dropError exactly.
func Drop(prefix string, err error) {
	if err != nil {
		log.Printf("%s: %v", prefix, err)
	} else {
		log.Print(prefix)
	}
}

// Note logs a plain informational message, used for setup/teardown
// milestones that have no associated error.
func Note(prefix, msg string) {
	log.Printf("%s: %s", prefix, msg)
}
