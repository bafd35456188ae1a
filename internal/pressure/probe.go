package pressure

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// headroomProbe reports remaining memory headroom in per-mille of the
// relevant limit. The cgroup's own memory limit wins when one is set;
// otherwise system-wide MemAvailable is used.
type headroomProbe func() (int, error)

func systemProbe() (int, error) {
	if permille, err := cgroupHeadroom(); err == nil {
		return permille, nil
	}
	return meminfoHeadroom()
}

// Headroom reports the current memory headroom in per-mille, for
// diagnostics.
func Headroom() (int, error) {
	return systemProbe()
}

func cgroupHeadroom() (int, error) {
	data, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return 0, err
	}
	group := ""
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "0::") {
			group = strings.TrimPrefix(line, "0::")
		}
	}
	if group == "" {
		return 0, errors.New("cgroup v2 not detected")
	}
	base := filepath.Join("/sys/fs/cgroup", group)
	limit, err := readCgroupBytes(filepath.Join(base, "memory.max"))
	if err != nil {
		return 0, err
	}
	current, err := readCgroupBytes(filepath.Join(base, "memory.current"))
	if err != nil {
		return 0, err
	}
	return headroomPermille(limit-current, limit)
}

func readCgroupBytes(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(data))
	if text == "max" {
		return 0, errors.New("no memory limit set")
	}
	return strconv.ParseInt(text, 10, 64)
}

func meminfoHeadroom() (int, error) {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer func() { _ = file.Close() }()
	return parseMeminfoHeadroom(file)
}

func parseMeminfoHeadroom(r io.Reader) (int, error) {
	var total, available int64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			total = parseMeminfoKB(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			available = parseMeminfoKB(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return headroomPermille(available, total)
}

func parseMeminfoKB(line string) int64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	value, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func headroomPermille(free, total int64) (int, error) {
	if total <= 0 {
		return 0, errors.New("no memory total available")
	}
	if free < 0 {
		free = 0
	}
	return int(free * 1000 / total), nil
}
