// Package tasks tracks asynchronous units of work through a small state
// machine (pending, running, and the terminal completed, failed and
// cancelled states) and bounds how many may run at once with a weighted
// semaphore. Records are held in memory and reclaimed by periodic sweeps
// once they have been terminal longer than the retention window.
package tasks
