package shfqa

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/qbench-io/shftk/internal/domain"
	"github.com/qbench-io/shftk/pkg/log"
	"github.com/qbench-io/shftk/pkg/nodetree"
)

// sampleRate is the spectroscopy sampling rate of the SHFQA in Hz.
const sampleRate = 2e9

// maxIntegrationSamples is the longest recordable integration window.
const maxIntegrationSamples = (1<<23 - 1) * 4

// Mapping selects the spacing of sweep frequency points.
type Mapping string

// Sweep point mappings.
const (
	MappingLinear Mapping = "linear"
	MappingLog    Mapping = "log"
)

// AveragingMode selects how repeated measurements are ordered.
type AveragingMode string

// Averaging modes.
const (
	// AveragingSequential measures each frequency point the configured
	// number of times before moving to the next point.
	AveragingSequential AveragingMode = "sequential"

	// AveragingCyclic sweeps all frequency points once and repeats the
	// whole sweep the configured number of times.
	AveragingCyclic AveragingMode = "cyclic"
)

// SweepPoint is the result of one swept frequency: the offset frequency
// in Hz and one raw reading per configured average.
type SweepPoint struct {
	Frequency float64
	Readings  []string
}

// Sweeper runs spectroscopy frequency sweeps on a qachannel. Trigger
// settings are pushed to the instrument as they are changed; sweep and
// averaging settings live on the host and shape the next Run. A Sweeper
// is not safe for concurrent use.
type Sweeper struct {
	channel *Channel

	triggerSource string
	triggerLevel  float64
	triggerImp50  bool

	startFreq float64
	stopFreq  float64
	numPoints int
	mapping   Mapping

	numAverages   int
	averagingMode AveragingMode

	triggerChannel *nodetree.Parameter[string]
	triggerLevelP  *nodetree.Parameter[float64]
	triggerImp50P  *nodetree.Parameter[bool]

	// OscillatorGain is the digital oscillator gain relative to the
	// channel output range, between 0.0 and 1.0.
	OscillatorGain *nodetree.Parameter[float64]

	// IntegrationLength is the integration window in samples, between 4
	// and 2^25 samples on a granularity of 4; off-grid values snap down.
	IntegrationLength *nodetree.Parameter[int64]
}

func newSweeper(ctx context.Context, channel *Channel) (*Sweeper, error) {
	s := &Sweeper{
		channel:       channel,
		triggerSource: "sw_trigger",
		triggerLevel:  0.5,
		triggerImp50:  true,
		startFreq:     -300e6,
		stopFreq:      300e6,
		numPoints:     100,
		mapping:       MappingLinear,
		numAverages:   1,
		averagingMode: AveragingCyclic,
	}
	d := channel.device

	gain, err := d.nodeInfo(ctx, "qachannels/%d/oscs/0/gain", channel.index)
	if err != nil {
		return nil, err
	}
	s.OscillatorGain = nodetree.NewFloat(d.client, gain, d.logger,
		nodetree.SmallerEqual(1.0),
		nodetree.GreaterEqual(0.0))

	length, err := d.nodeInfo(ctx, "qachannels/%d/spectroscopy/length", channel.index)
	if err != nil {
		return nil, err
	}
	s.IntegrationLength = nodetree.NewInt(d.client, length, d.logger,
		nodetree.GreaterEqual[int64](4),
		nodetree.SmallerEqual[int64](maxIntegrationSamples),
		nodetree.MultipleOf[int64](4, nodetree.RoundDown))

	trigChannel, err := d.nodeInfo(ctx, "qachannels/%d/spectroscopy/trigger/channel", channel.index)
	if err != nil {
		return nil, err
	}
	s.triggerChannel = nodetree.NewMapped(d.client, trigChannel, d.logger)

	trigLevel, err := d.nodeInfo(ctx, "qachannels/%d/spectroscopy/trigger/level", channel.index)
	if err != nil {
		return nil, err
	}
	s.triggerLevelP = nodetree.NewFloat(d.client, trigLevel, d.logger)

	trigImp50, err := d.nodeInfo(ctx, "qachannels/%d/spectroscopy/trigger/imp50", channel.index)
	if err != nil {
		return nil, err
	}
	s.triggerImp50P = nodetree.NewTrueFalse(d.client, trigImp50, d.logger)

	return s, nil
}

// SetTriggerSource updates the sweeper trigger source and pushes the
// trigger settings to the instrument.
func (s *Sweeper) SetTriggerSource(ctx context.Context, source string) error {
	s.triggerSource = source
	return s.pushTriggerSettings(ctx)
}

// TriggerSource returns the configured trigger source.
func (s *Sweeper) TriggerSource() string {
	return s.triggerSource
}

// SetTriggerLevel updates the trigger level and pushes the trigger
// settings to the instrument.
func (s *Sweeper) SetTriggerLevel(ctx context.Context, level float64) error {
	s.triggerLevel = level
	return s.pushTriggerSettings(ctx)
}

// TriggerLevel returns the configured trigger level.
func (s *Sweeper) TriggerLevel() float64 {
	return s.triggerLevel
}

// SetTriggerImp50 selects the trigger input impedance: 50 Ohm when true,
// 1 kOhm when false. The setting is pushed to the instrument.
func (s *Sweeper) SetTriggerImp50(ctx context.Context, imp50 bool) error {
	s.triggerImp50 = imp50
	return s.pushTriggerSettings(ctx)
}

// TriggerImp50 returns the configured trigger input impedance selection.
func (s *Sweeper) TriggerImp50() bool {
	return s.triggerImp50
}

// SetStartFrequency sets the sweep start frequency in Hz relative to the
// channel center frequency.
func (s *Sweeper) SetStartFrequency(freq float64) {
	s.startFreq = freq
}

// StartFrequency returns the sweep start frequency in Hz.
func (s *Sweeper) StartFrequency() float64 {
	return s.startFreq
}

// SetStopFrequency sets the sweep stop frequency in Hz relative to the
// channel center frequency.
func (s *Sweeper) SetStopFrequency(freq float64) {
	s.stopFreq = freq
}

// StopFrequency returns the sweep stop frequency in Hz.
func (s *Sweeper) StopFrequency() float64 {
	return s.stopFreq
}

// SetNumPoints sets the number of frequency points swept between start
// and stop frequency.
func (s *Sweeper) SetNumPoints(num int) error {
	if num < 1 {
		return fmt.Errorf("%w: number of points must be at least 1", domain.ErrInvalidValue)
	}
	s.numPoints = num
	return nil
}

// NumPoints returns the configured number of frequency points.
func (s *Sweeper) NumPoints() int {
	return s.numPoints
}

// SetMapping selects linear or logarithmic spacing of the sweep points.
func (s *Sweeper) SetMapping(m Mapping) error {
	switch m {
	case MappingLinear, MappingLog:
		s.mapping = m
		return nil
	default:
		return fmt.Errorf("%w: mapping must be %q or %q", domain.ErrInvalidValue, MappingLinear, MappingLog)
	}
}

// SweepMapping returns the configured point spacing.
func (s *Sweeper) SweepMapping() Mapping {
	return s.mapping
}

// SetNumAverages sets how many times each frequency point is measured.
func (s *Sweeper) SetNumAverages(num int) error {
	if num < 1 {
		return fmt.Errorf("%w: number of averages must be at least 1", domain.ErrInvalidValue)
	}
	s.numAverages = num
	return nil
}

// NumAverages returns the configured number of averages.
func (s *Sweeper) NumAverages() int {
	return s.numAverages
}

// SetAveragingMode selects sequential or cyclic averaging.
func (s *Sweeper) SetAveragingMode(mode AveragingMode) error {
	switch mode {
	case AveragingSequential, AveragingCyclic:
		s.averagingMode = mode
		return nil
	default:
		return fmt.Errorf("%w: averaging mode must be %q or %q",
			domain.ErrInvalidValue, AveragingSequential, AveragingCyclic)
	}
}

// SweepAveragingMode returns the configured averaging mode.
func (s *Sweeper) SweepAveragingMode() AveragingMode {
	return s.averagingMode
}

// SetIntegrationTime sets the integration window in seconds. The value
// is converted to samples at the 2 GHz spectroscopy rate and written to
// the integration length node; it returns the effective time after the
// granularity snapped the sample count.
func (s *Sweeper) SetIntegrationTime(ctx context.Context, seconds float64) (float64, error) {
	samples := int64(math.Round(seconds * sampleRate))
	written, err := s.IntegrationLength.Set(ctx, samples)
	if err != nil {
		return 0, err
	}
	return float64(written) / sampleRate, nil
}

// IntegrationTime reads the integration window in seconds.
func (s *Sweeper) IntegrationTime(ctx context.Context) (float64, error) {
	samples, err := s.IntegrationLength.Get(ctx)
	if err != nil {
		return 0, err
	}
	return float64(samples) / sampleRate, nil
}

// Run executes the configured sweep: for every frequency point the
// oscillator is tuned and the spectroscopy result is read back, repeated
// according to the averaging settings. Run blocks until the sweep is
// complete or the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) ([]SweepPoint, error) {
	freqs, err := s.frequencyPoints()
	if err != nil {
		return nil, err
	}
	points := make([]SweepPoint, len(freqs))
	for i, f := range freqs {
		points[i] = SweepPoint{Frequency: f}
	}

	switch s.averagingMode {
	case AveragingSequential:
		for i := range points {
			for a := 0; a < s.numAverages; a++ {
				if err := s.measure(ctx, &points[i]); err != nil {
					return nil, err
				}
			}
		}
	default: // cyclic
		for a := 0; a < s.numAverages; a++ {
			for i := range points {
				if err := s.measure(ctx, &points[i]); err != nil {
					return nil, err
				}
			}
		}
	}
	s.channel.device.logger.Info("sweep complete",
		log.Int("channel", s.channel.index),
		log.Float64("start_freq", s.startFreq),
		log.Float64("stop_freq", s.stopFreq),
		log.Int("points", len(points)),
		log.Int("averages", s.numAverages))
	return points, nil
}

// measure tunes the oscillator to the point frequency and appends one reading.
func (s *Sweeper) measure(ctx context.Context, p *SweepPoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := s.channel.device
	freqNode := d.path("qachannels/%d/oscs/0/freq", s.channel.index)
	raw := strconv.FormatFloat(p.Frequency, 'g', -1, 64)
	if err := d.client.Set(ctx, freqNode, raw); err != nil {
		return err
	}
	waveNode := d.path("qachannels/%d/spectroscopy/result/data/wave", s.channel.index)
	reading, err := d.client.Get(ctx, waveNode)
	if err != nil {
		return err
	}
	p.Readings = append(p.Readings, reading)
	return nil
}

// frequencyPoints expands the sweep settings into concrete frequencies.
func (s *Sweeper) frequencyPoints() ([]float64, error) {
	n := s.numPoints
	if n == 1 {
		return []float64{s.startFreq}, nil
	}
	freqs := make([]float64, n)
	switch s.mapping {
	case MappingLog:
		if s.startFreq <= 0 || s.stopFreq <= 0 {
			return nil, fmt.Errorf("%w: log mapping requires positive start and stop frequencies",
				domain.ErrInvalidValue)
		}
		logStart := math.Log10(s.startFreq)
		logStop := math.Log10(s.stopFreq)
		step := (logStop - logStart) / float64(n-1)
		for i := range freqs {
			freqs[i] = math.Pow(10, logStart+float64(i)*step)
		}
	default: // linear
		step := (s.stopFreq - s.startFreq) / float64(n-1)
		for i := range freqs {
			freqs[i] = s.startFreq + float64(i)*step
		}
	}
	return freqs, nil
}

// pushTriggerSettings writes the local trigger configuration to the
// instrument nodes.
func (s *Sweeper) pushTriggerSettings(ctx context.Context) error {
	if _, err := s.triggerChannel.Set(ctx, s.triggerSource); err != nil {
		return err
	}
	if _, err := s.triggerLevelP.Set(ctx, s.triggerLevel); err != nil {
		return err
	}
	if _, err := s.triggerImp50P.Set(ctx, s.triggerImp50); err != nil {
		return err
	}
	s.channel.device.logger.Debug("trigger settings pushed",
		log.String("source", s.triggerSource),
		log.Float64("level", s.triggerLevel),
		log.Bool("imp50", s.triggerImp50))
	return nil
}
