// Package logging gives each pipeline component (producer, worker N,
// processor, supervisor) its own prefixed *log.Logger, printing single-line
// status messages with the standard log package.
package logging

import (
	"log"
	"os"
)

// New returns a logger that prefixes every line with component, e.g.
// "[worker-2] ".
func New(component string) *log.Logger {
	return log.New(os.Stderr, "["+component+"] ", log.LstdFlags)
}
