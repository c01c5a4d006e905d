package memguard

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"go.uber.org/zap"
)

const defaultStatusPath = "/proc/self/status"

// Usage is a point-in-time memory snapshot.
type Usage struct {
	CurrentBytes   uint64
	PeakBytes      uint64
	ThresholdBytes uint64
}

func (u Usage) CurrentMB() uint64 {
	return u.CurrentBytes / (1024 * 1024)
}

func (u Usage) PeakMB() uint64 {
	return u.PeakBytes / (1024 * 1024)
}

func (u Usage) ThresholdMB() uint64 {
	return u.ThresholdBytes / (1024 * 1024)
}

func (u Usage) UtilizationPercent() float64 {
	if u.ThresholdBytes == 0 {
		return 0.0
	}
	return float64(u.CurrentBytes) / float64(u.ThresholdBytes) * 100.0
}

// Monitor tracks resident memory against a configured ceiling. Peak is
// updated by compare-and-set and only ever grows; current usage is sampled
// live from the OS on every call, never accumulated. Crossing the warn
// fraction logs and continues; crossing the threshold fails Validate.
type Monitor struct {
	peakBytes      atomic.Uint64
	thresholdBytes uint64
	warnFraction   float64
	statusPath     string
	logger         *zap.Logger
}

func NewMonitor(thresholdMB uint64, warnFraction float64, logger *zap.Logger) *Monitor {
	if warnFraction < 0 {
		warnFraction = 0
	}
	if warnFraction > 1 {
		warnFraction = 1
	}
	return &Monitor{
		thresholdBytes: thresholdMB * 1024 * 1024,
		warnFraction:   warnFraction,
		statusPath:     defaultStatusPath,
		logger:         logger,
	}
}

// Record folds an observed usage into the peak.
func (m *Monitor) Record(bytes uint64) {
	for {
		peak := m.peakBytes.Load()
		if bytes <= peak {
			return
		}
		if m.peakBytes.CompareAndSwap(peak, bytes) {
			return
		}
	}
}

// Usage samples current usage and pairs it with the recorded peak.
func (m *Monitor) Usage() Usage {
	return Usage{
		CurrentBytes:   m.currentBytes(),
		PeakBytes:      m.peakBytes.Load(),
		ThresholdBytes: m.thresholdBytes,
	}
}

// currentBytes reads the resident set size from the proc status file. When
// that is unavailable the recorded peak stands in.
func (m *Monitor) currentBytes() uint64 {
	data, err := os.ReadFile(m.statusPath)
	if err != nil {
		return m.peakBytes.Load()
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			break
		}
		return kb * 1024
	}
	return m.peakBytes.Load()
}

func (m *Monitor) ExceedsThreshold() bool {
	return m.currentBytes() > m.thresholdBytes
}

func (m *Monitor) ApproachingThreshold() bool {
	warnBytes := uint64(float64(m.thresholdBytes) * m.warnFraction)
	return m.currentBytes() > warnBytes
}

// Validate fails hard when usage is above the threshold. Callers invoke it
// at chosen checkpoints, not on every allocation.
func (m *Monitor) Validate() error {
	current := m.currentBytes()
	m.Record(current)
	if current > m.thresholdBytes {
		u := m.Usage()
		return entity.ErrMemoryExceeded(u.CurrentMB(), u.ThresholdMB())
	}
	return nil
}

// CheckAndWarn logs when usage is approaching the threshold. Advisory only.
func (m *Monitor) CheckAndWarn() bool {
	if !m.ApproachingThreshold() {
		return false
	}
	u := m.Usage()
	m.logger.Warn("memory usage approaching threshold",
		zap.Uint64("current_mb", u.CurrentMB()),
		zap.Uint64("threshold_mb", u.ThresholdMB()),
		zap.Float64("percent", u.UtilizationPercent()),
	)
	return true
}
