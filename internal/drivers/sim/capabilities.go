package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/openmda/mda-core/internal/capability"
)

// Signal model constants. The intensity peak sits at the axis origin and
// each filter step halves the signal, so scans across the travel range
// produce a recognisable Gaussian.
const (
	peakIntensity = 1000.0
	peakWidth     = 2.5 // standard deviation, mm

	spectrumLength = 16
)

// ─── Stage axis (continuous actuator) ───

type stageAxis struct {
	dev  *Device
	axis int
}

func (a *stageAxis) Name() string { return fmt.Sprintf("axis-%d", a.axis) }
func (a *stageAxis) Unit() string { return "mm" }

func (a *stageAxis) Limits() (float64, float64) {
	return defaultLowerLimit, defaultUpperLimit
}

func (a *stageAxis) Position(_ context.Context) (float64, error) {
	if err := a.dev.checkOperational(nil); err != nil {
		return 0, err
	}
	a.dev.mu.Lock()
	defer a.dev.mu.Unlock()
	return a.dev.positions[a.axis], nil
}

func (a *stageAxis) SetPosition(ctx context.Context, value float64) error {
	if err := capability.CheckLimits(defaultLowerLimit, defaultUpperLimit, value); err != nil {
		return err
	}
	if err := a.dev.checkOperational(a.dev.injectedMoveErr()); err != nil {
		return err
	}
	if err := a.dev.sleep(ctx); err != nil {
		return fmt.Errorf("%w: move interrupted: %w", capability.ErrHardware, err)
	}

	a.dev.mu.Lock()
	a.dev.positions[a.axis] = value
	a.dev.mu.Unlock()
	return nil
}

// ─── Filter wheel (discrete actuator) ───

type filterWheel struct {
	dev *Device
}

func (w *filterWheel) Name() string { return "filter" }
func (w *filterWheel) Unit() string { return "" }

func (w *filterWheel) Options() []string {
	return append([]string(nil), w.dev.opts.Filters...)
}

func (w *filterWheel) Position(_ context.Context) (int, error) {
	if err := w.dev.checkOperational(nil); err != nil {
		return 0, err
	}
	w.dev.mu.Lock()
	defer w.dev.mu.Unlock()
	return w.dev.filterIdx, nil
}

func (w *filterWheel) SetPosition(ctx context.Context, index int) error {
	if err := capability.CheckIndex(len(w.dev.opts.Filters), index); err != nil {
		return err
	}
	if err := w.dev.checkOperational(w.dev.injectedMoveErr()); err != nil {
		return err
	}
	if err := w.dev.sleep(ctx); err != nil {
		return fmt.Errorf("%w: move interrupted: %w", capability.ErrHardware, err)
	}

	w.dev.mu.Lock()
	w.dev.filterIdx = index
	w.dev.mu.Unlock()
	return nil
}

// ─── Detectors ───

type scalarDetector struct {
	dev *Device
}

func (s *scalarDetector) Name() string        { return "intensity" }
func (s *scalarDetector) Unit() string        { return "counts" }
func (s *scalarDetector) Dimensionality() int { return 0 }

func (s *scalarDetector) Read(ctx context.Context) (capability.Reading, error) {
	if err := s.dev.checkOperational(s.dev.injectedReadErr()); err != nil {
		return capability.Reading{}, err
	}
	if err := s.dev.sleep(ctx); err != nil {
		return capability.Reading{}, fmt.Errorf("%w: read interrupted: %w", capability.ErrHardware, err)
	}

	return capability.Reading{
		Detector:  s.Name(),
		Unit:      s.Unit(),
		Values:    []float64{s.dev.signal()},
		Timestamp: time.Now().UTC(),
	}, nil
}

type vectorDetector struct {
	dev *Device
}

func (v *vectorDetector) Name() string        { return "spectrum" }
func (v *vectorDetector) Unit() string        { return "counts" }
func (v *vectorDetector) Dimensionality() int { return 1 }

// Read produces a small synthetic spectrum: the scalar signal spread over
// a fixed number of channels with a channel-dependent falloff.
func (v *vectorDetector) Read(ctx context.Context) (capability.Reading, error) {
	if err := v.dev.checkOperational(v.dev.injectedReadErr()); err != nil {
		return capability.Reading{}, err
	}
	if err := v.dev.sleep(ctx); err != nil {
		return capability.Reading{}, fmt.Errorf("%w: read interrupted: %w", capability.ErrHardware, err)
	}

	base := v.dev.signal()
	values := make([]float64, spectrumLength)
	for i := range values {
		values[i] = base * math.Exp(-float64(i)/float64(spectrumLength))
	}

	return capability.Reading{
		Detector:  v.Name(),
		Unit:      v.Unit(),
		Shape:     []int{spectrumLength},
		Values:    values,
		Timestamp: time.Now().UTC(),
	}, nil
}

// signal evaluates the synthetic intensity at the current axis positions
// and filter selection. Deterministic: the same state always yields the
// same value, which keeps scan tests assertable.
func (d *Device) signal() float64 {
	d.mu.Lock()
	positions := append([]float64(nil), d.positions...)
	filterIdx := d.filterIdx
	d.mu.Unlock()

	sumSq := 0.0
	for _, p := range positions {
		sumSq += p * p
	}
	intensity := peakIntensity * math.Exp(-sumSq/(2*peakWidth*peakWidth))

	// Each filter step halves the transmitted signal.
	return intensity / math.Pow(2, float64(filterIdx))
}
