//go:build linux

package pgas

import "golang.org/x/sys/unix"

// pinToCPU binds the calling goroutine's OS thread to a single CPU core.
// Grounded on the teacher's ring24/setaffinity_linux.go, which pins
// per-core consumer goroutines via a raw sched_setaffinity(2) syscall;
// here the same pinning is expressed through golang.org/x/sys/unix's
// CPUSet/SchedSetaffinity wrapper (the teacher's go.mod already carries
// golang.org/x/sys as an indirect dependency for this exact syscall
// family — this promotes it to a direct one instead of hand-rolling the
// raw syscall numbers again).
//
// Callers must have already called runtime.LockOSThread.
func pinToCPU(cpu int) {
	if cpu < 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	_ = unix.SchedSetaffinity(0, &set)
}
