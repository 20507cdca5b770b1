// Package system probes the host for resources the export pipeline
// cares about: file descriptor limits, hardware encoders, and sensible
// worker counts for the probe and encode pools.
package system

import (
	"log/slog"
	"os/exec"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open file limit so that concurrent
// ffmpeg children and segment files do not exhaust descriptors.
func InitResourceLimits(log *slog.Logger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn("could not read file limit", "error", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn("could not raise file limit", "error", err)
	} else {
		log.Debug("open file limit raised", "limit", rLimit.Cur)
	}
}

// GetBestH264Encoder picks a hardware H.264 encoder when ffmpeg reports
// one, falling back to libx264.
func GetBestH264Encoder() string {
	candidates := []string{"h264_videotoolbox", "h264_nvenc"}

	out, err := exec.Command("ffmpeg", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range candidates {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}

// CheckFilterSupport reports whether the installed ffmpeg build carries
// the named filter.
func CheckFilterSupport(name string) bool {
	out, err := exec.Command("ffmpeg", "-filters").CombinedOutput()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), " "+name+" ")
}

// ProbeWorkers sizes the pool that runs ffprobe and image decoding.
// Probing is I/O bound with a short CPU tail, so one worker per
// logical core is a good ceiling.
func ProbeWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return 4
	}
	if n > 16 {
		n = 16
	}
	return n
}

// EncodeWorkers sizes the pool of concurrent ffmpeg encodes. Each
// encode holds frame buffers proportional to the canvas, so the count
// is capped by available memory as well as cores.
func EncodeWorkers() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		n = 2
	}
	if n > 4 {
		// Encoders saturate quickly; more than 4 rarely helps and
		// starves hardware encoder sessions.
		n = 4
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		// Budget roughly 1 GiB of headroom per concurrent encode.
		byMem := int(vm.Available / (1 << 30))
		if byMem < 1 {
			byMem = 1
		}
		if byMem < n {
			n = byMem
		}
	}
	return n
}
