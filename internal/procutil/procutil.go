// Package procutil tears down a launched browser's entire process tree,
// not just its immediate pid, since Chrome forks helper and renderer
// processes that otherwise survive their parent's death.
package procutil

import (
	"os"
	"time"

	"github.com/chromedp/sysutil"
)

// KillTree sends an interrupt signal to pid and every descendant it can
// find, waits up to grace for the tree to exit, and then kills every one of
// those processes if any is still alive. It
// never returns an error: teardown is best-effort, matching the teacher's
// "a dead child is not itself a failure" stance (spec.md §6, supervisor
// shutdown).
func KillTree(pid int, grace time.Duration) {
	if pid <= 0 {
		return
	}

	pids, err := sysutil.ListChildPIDs(pid)
	if err != nil {
		pids = nil
	}
	pids = append(pids, pid)

	for _, p := range pids {
		if proc, err := os.FindProcess(p); err == nil {
			proc.Signal(os.Interrupt)
		}
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !anyAlive(pids) {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}

	for _, p := range pids {
		if proc, err := os.FindProcess(p); err == nil {
			proc.Kill()
		}
	}
}

func anyAlive(pids []int) bool {
	for _, p := range pids {
		if sysutil.IsPIDAlive(p) {
			return true
		}
	}
	return false
}
