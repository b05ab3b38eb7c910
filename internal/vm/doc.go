// Package vm provides high-level VM lifecycle management operations.
//
// A Session holds the single target VM name the console acts on and maps
// each lifecycle intent onto one management call. Nothing here waits for
// the domain to settle; the next status poll is the only confirmation.
//
// Multi-step workflows (create, delete, host setup) are built as a Plan of
// titled steps and run by an Executor, which streams long commands through
// the stream supervisor, downloads images through the fetcher and reports
// every step to an observer. The first failing step aborts the plan unless
// the step is marked IgnoreFailure.
package vm
