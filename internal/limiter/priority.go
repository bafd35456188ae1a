package limiter

import (
	"fmt"

	"golang.org/x/sys/unix"
	"pkt.systems/owlcore/schema"
)

// I/O priority plumbing for the degraded path. The kernel exposes ioprio_get
// and ioprio_set but x/sys/unix carries no typed wrapper, so the class and
// level are packed by hand.
const (
	ioprioWhoProcess = 1
	ioprioClassShift = 13
	ioprioClassBE    = 2
	ioprioClassIdle  = 3
)

// applyPriorities maps a budget onto nice and ioprio values. A full CPU
// share lands on nice 0; the smallest shares approach nice 19.
func applyPriorities(pid int, budget schema.Budget) error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, niceFromShare(budget.CPUShare)); err != nil {
		return fmt.Errorf("setpriority pid %d: %w", pid, err)
	}
	class, level := ioprioFromClass(budget.IO)
	if err := setIOPrio(pid, class, level); err != nil {
		return fmt.Errorf("ioprio_set pid %d: %w", pid, err)
	}
	return nil
}

func niceFromShare(share uint32) int {
	if share > 1000 {
		share = 1000
	}
	nice := int(1000-share) * 19 / 1000
	return nice
}

func ioprioFromClass(class schema.IOClass) (int, int) {
	switch class {
	case schema.IOClassHigh:
		return ioprioClassBE, 0
	case schema.IOClassIdle:
		return ioprioClassIdle, 0
	default:
		return ioprioClassBE, 4
	}
}

func setIOPrio(pid, class, level int) error {
	_, _, errno := unix.Syscall(
		unix.SYS_IOPRIO_SET,
		uintptr(ioprioWhoProcess),
		uintptr(pid),
		uintptr(class<<ioprioClassShift|level),
	)
	if errno != 0 {
		return errno
	}
	return nil
}
