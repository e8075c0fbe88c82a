// Package scratch manages per-submission temporary directories.
//
// Every submission that needs disk space gets its own randomly named
// directory under a common root, created lazily and removed unconditionally
// when the owning operation exits, whether it succeeded or failed. The
// manager also clears stale trees left behind by previous failed runs.
package scratch
