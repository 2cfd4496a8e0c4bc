//go:build windows

package lifecycle

import "os"

// Windows has no job-control signals; resume is only triggered manually.
func DefaultResumeSignals() []os.Signal {
	return nil
}
