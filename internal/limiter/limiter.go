// Package limiter applies per-tab OS resource budgets. The primary mechanism
// is a cgroup v2 subtree with one group per tab process; when the cgroup
// hierarchy is not writable the limiter degrades to plain process and I/O
// priorities, which still bias the schedulers even without hard caps.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/containerd/cgroups/v3/cgroup2"
	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

// Config selects where tab cgroups live.
type Config struct {
	// Mountpoint is the cgroup v2 mountpoint. Defaults to /sys/fs/cgroup.
	Mountpoint string
	// Parent is the cgroup that holds all tab groups. Relative names are
	// resolved against the process's own cgroup; absolute paths are used
	// as-is. Defaults to "tabs".
	Parent string
}

// CgroupLimiter implements budget application over cgroup v2 with a process
// priority fallback.
type CgroupLimiter struct {
	log      pslog.Logger
	mount    string
	parent   string
	degraded bool

	mu     sync.Mutex
	groups map[int]*cgroup2.Manager
}

// New constructs the limiter and probes cgroup access. Probe failure is not
// an error: the limiter comes up degraded and budgets map to priorities.
func New(cfg Config, logger pslog.Logger) *CgroupLimiter {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if cfg.Mountpoint == "" {
		cfg.Mountpoint = "/sys/fs/cgroup"
	}
	if cfg.Parent == "" {
		cfg.Parent = "tabs"
	}
	l := &CgroupLimiter{
		log:    logger,
		mount:  cfg.Mountpoint,
		groups: make(map[int]*cgroup2.Manager),
	}
	parent, err := resolveParentPath(cfg.Parent)
	if err != nil {
		logger.Warn("cgroup detection failed, degrading to priorities", "err", err)
		l.degraded = true
		return l
	}
	l.parent = parent
	if _, err := cgroup2.NewManager(l.mount, parent, &cgroup2.Resources{}); err != nil {
		logger.Warn("cgroup parent not writable, degrading to priorities", "parent", parent, "err", err)
		l.degraded = true
		return l
	}
	logger.Info("cgroup limiter ready", "parent", parent)
	return l
}

// Apply puts pid under the budget. Repeated calls update the existing group
// in place.
func (l *CgroupLimiter) Apply(ctx context.Context, pid int, budget schema.Budget) error {
	if pid <= 0 {
		return fmt.Errorf("apply budget: %w", errdefs.ErrInvalidArgument)
	}
	if l.degraded {
		return applyPriorities(pid, budget)
	}
	resources := cgroup2.ToResources(linuxResources(budget))
	l.mu.Lock()
	manager, ok := l.groups[pid]
	l.mu.Unlock()
	if ok {
		if err := manager.Update(resources); err != nil {
			return fmt.Errorf("update cgroup for pid %d: %w", pid, err)
		}
		return nil
	}
	group := path.Join(l.parent, fmt.Sprintf("tab-%d", pid))
	manager, err := cgroup2.NewManager(l.mount, group, resources)
	if err != nil {
		return fmt.Errorf("create cgroup %s: %w", group, err)
	}
	if err := manager.AddProc(uint64(pid)); err != nil {
		_ = manager.Delete()
		return fmt.Errorf("add pid %d to cgroup %s: %w", pid, group, err)
	}
	l.mu.Lock()
	l.groups[pid] = manager
	l.mu.Unlock()
	l.log.Debug("budget applied", "pid", pid, "group", group, "cpu_share", budget.CPUShare)
	return nil
}

// Remove deletes the tab group once its process is gone.
func (l *CgroupLimiter) Remove(ctx context.Context, pid int) error {
	if l.degraded {
		return nil
	}
	l.mu.Lock()
	manager, ok := l.groups[pid]
	delete(l.groups, pid)
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("remove pid %d: %w", pid, errdefs.ErrNotFound)
	}
	if err := manager.Delete(); err != nil {
		// The group dissolves with its last process; a missing directory
		// is not a failure.
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("delete cgroup for pid %d: %w", pid, err)
	}
	return nil
}

// Degraded reports whether the limiter runs without cgroup control.
func (l *CgroupLimiter) Degraded() bool {
	return l.degraded
}

// Close removes every remaining tab group.
func (l *CgroupLimiter) Close() error {
	l.mu.Lock()
	managers := make([]*cgroup2.Manager, 0, len(l.groups))
	for pid, manager := range l.groups {
		managers = append(managers, manager)
		delete(l.groups, pid)
	}
	l.mu.Unlock()
	var firstErr error
	for _, manager := range managers {
		if err := manager.Delete(); err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// linuxResources maps a budget onto the OCI resource spec the cgroup layer
// consumes. CPU shares use the conventional 2..1024 range with the full
// share at 1024.
func linuxResources(budget schema.Budget) *specs.LinuxResources {
	resources := &specs.LinuxResources{}
	shares := cpuShares(budget.CPUShare)
	resources.CPU = &specs.LinuxCPU{Shares: &shares}
	if budget.MemoryCapBytes > 0 {
		limit := int64(budget.MemoryCapBytes)
		resources.Memory = &specs.LinuxMemory{Limit: &limit}
	}
	weight := ioWeight(budget.IO)
	resources.BlockIO = &specs.LinuxBlockIO{Weight: &weight}
	return resources
}

func cpuShares(share uint32) uint64 {
	if share > 1000 {
		share = 1000
	}
	shares := uint64(share) * 1024 / 1000
	if shares < 2 {
		shares = 2
	}
	return shares
}

func ioWeight(class schema.IOClass) uint16 {
	switch class {
	case schema.IOClassHigh:
		return 600
	case schema.IOClassIdle:
		return 100
	default:
		return 300
	}
}

// resolveParentPath turns a configured parent into an absolute cgroup path,
// anchored at the process's own cgroup for relative names.
func resolveParentPath(parent string) (string, error) {
	parent = strings.TrimSpace(parent)
	if strings.HasPrefix(parent, "/") {
		return path.Clean(parent), nil
	}
	current, err := currentCgroupPath()
	if err != nil {
		return "", err
	}
	return path.Clean(path.Join(current, parent)), nil
}

func currentCgroupPath() (string, error) {
	data, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return "", err
	}
	return parseCgroupPath(string(data))
}

func parseCgroupPath(data string) (string, error) {
	for _, line := range strings.Split(data, "\n") {
		if strings.HasPrefix(line, "0::") {
			p := strings.TrimPrefix(line, "0::")
			if p == "" {
				p = "/"
			}
			return p, nil
		}
	}
	return "", errors.New("cgroup v2 not detected")
}
