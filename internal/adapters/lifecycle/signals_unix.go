//go:build !windows

package lifecycle

import (
	"os"
	"syscall"
)

func DefaultResumeSignals() []os.Signal {
	return []os.Signal{syscall.SIGCONT, syscall.SIGUSR1}
}
