package system

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"coremeter/internal/domain"
	"coremeter/internal/logger"
)

type CPUStat struct {
	User, Nice, System, Idle, Iowait, Irq, Softirq, Steal uint64
}

// Ticks folds the kernel's columns into the four accounting buckets.
// Interrupt and steal time count as SYSTEM, iowait counts as IDLE.
func (s CPUStat) Ticks() domain.CPUTicks {
	var t domain.CPUTicks
	t[domain.StateUser] = s.User
	t[domain.StateNice] = s.Nice
	t[domain.StateSystem] = s.System + s.Irq + s.Softirq + s.Steal
	t[domain.StateIdle] = s.Idle + s.Iowait
	return t
}

// ProcStat samples /proc/stat.
type ProcStat struct {
	fsys fs.FS
	log  logger.Logger
}

func NewProcStat(log logger.Logger) *ProcStat {
	return NewProcStatFS(os.DirFS("/proc"), log)
}

// NewProcStatFS reads "stat" from fsys, which stands in for /proc.
func NewProcStatFS(fsys fs.FS, log logger.Logger) *ProcStat {
	return &ProcStat{fsys: fsys, log: log}
}

func (p *ProcStat) Name() string {
	return "procfs"
}

func (p *ProcStat) Sample(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAccountingUnavailable, err)
	}

	data, err := fs.ReadFile(p.fsys, "stat")
	if err != nil {
		return nil, fmt.Errorf("%w: read /proc/stat: %w", domain.ErrAccountingUnavailable, err)
	}

	stats, err := parseProcStat(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAccountingUnavailable, err)
	}

	snap := make(domain.Snapshot, len(stats))
	for i, s := range stats {
		snap[i] = s.Ticks()
	}

	p.log.Trace("sampled /proc/stat", "processors", len(snap))
	return snap, nil
}

// parseProcStat returns the per-processor rows ordered by kernel cpu number.
// Offline cores have no row, so the result is compacted rather than indexed
// by cpu number.
func parseProcStat(data string) ([]CPUStat, error) {
	byCore := make(map[int]CPUStat)

	for line := range strings.SplitSeq(data, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "cpu") {
			continue
		}

		fields := strings.Fields(line)
		idx, ok := cpuCoreIndex(fields[0])
		if !ok {
			continue
		}

		stat, err := parseCPUFields(fields[1:])
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fields[0], err)
		}

		if _, dup := byCore[idx]; dup {
			return nil, fmt.Errorf("duplicate entry for %s", fields[0])
		}
		byCore[idx] = stat
	}

	if len(byCore) == 0 {
		return nil, fmt.Errorf("no per-processor lines in /proc/stat")
	}

	cores := slices.Sorted(maps.Keys(byCore))
	stats := make([]CPUStat, len(cores))
	for i, core := range cores {
		stats[i] = byCore[core]
	}

	return stats, nil
}

func parseCPUFields(fields []string) (CPUStat, error) {
	if len(fields) < 4 {
		return CPUStat{}, fmt.Errorf("expected at least 4 columns, got %d", len(fields))
	}

	var vals [8]uint64
	for i := 0; i < len(vals) && i < len(fields); i++ {
		v, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return CPUStat{}, err
		}
		vals[i] = v
	}

	return CPUStat{
		User:    vals[0],
		Nice:    vals[1],
		System:  vals[2],
		Idle:    vals[3],
		Iowait:  vals[4],
		Irq:     vals[5],
		Softirq: vals[6],
		Steal:   vals[7],
	}, nil
}

func cpuCoreIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, "cpu") || name == "cpu" {
		return -1, false
	}

	id, err := strconv.Atoi(strings.TrimPrefix(name, "cpu"))
	if err != nil || id < 0 {
		return -1, false
	}
	return id, true
}
