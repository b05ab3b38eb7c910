// Package command runs external processes for vmtui.
//
// Short commands return a Result carrying trimmed output and a Status that
// separates a missing executable, a failed command and a command that
// succeeded without output. Long commands are read line by line through a
// Stream. Console hand-off and detached launches are also provided here so
// that every external process goes through one place.
package command
