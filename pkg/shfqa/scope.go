package shfqa

import (
	"context"
	"fmt"

	"github.com/qbench-io/shftk/internal/domain"
	"github.com/qbench-io/shftk/pkg/log"
	"github.com/qbench-io/shftk/pkg/nodetree"
)

// scopeChannels is the number of recording channels of the SHFQA scope.
const scopeChannels = 4

// Scope is the instrument's oscilloscope unit with four recording channels.
type Scope struct {
	device *Device

	enable *nodetree.Parameter[bool]

	channels     [scopeChannels]*nodetree.Parameter[string]
	inputSelects [scopeChannels]*nodetree.Parameter[string]
	waves        [scopeChannels]*nodetree.Parameter[string]

	// TriggerSource selects the scope trigger signal.
	TriggerSource *nodetree.Parameter[string]

	// TriggerDelay is the trigger delay in seconds on a 2 ns grid; a
	// negative delay acquires data before the trigger point.
	TriggerDelay *nodetree.Parameter[float64]

	// Length is the recorded shot length in samples, between 16 and
	// 2^18 on a granularity of 16; off-grid values snap down.
	Length *nodetree.Parameter[int64]

	// Time selects the scope time base.
	Time *nodetree.Parameter[string]

	segmentsEnable *nodetree.Parameter[bool]
	segmentsCount  *nodetree.Parameter[int64]

	averagingEnable *nodetree.Parameter[bool]
	averagingCount  *nodetree.Parameter[int64]
}

func newScope(ctx context.Context, device *Device) (*Scope, error) {
	s := &Scope{device: device}
	d := device

	enable, err := d.nodeInfo(ctx, "scopes/0/enable")
	if err != nil {
		return nil, err
	}
	s.enable = nodetree.NewTrueFalse(d.client, enable, d.logger)

	for i := 0; i < scopeChannels; i++ {
		chEnable, err := d.nodeInfo(ctx, "scopes/0/channels/%d/enable", i)
		if err != nil {
			return nil, err
		}
		s.channels[i] = nodetree.NewOnOff(d.client, chEnable, d.logger)

		inputSelect, err := d.nodeInfo(ctx, "scopes/0/channels/%d/inputselect", i)
		if err != nil {
			return nil, err
		}
		s.inputSelects[i] = nodetree.NewMapped(d.client, inputSelect, d.logger)

		wave, err := d.nodeInfo(ctx, "scopes/0/channels/%d/wave", i)
		if err != nil {
			return nil, err
		}
		s.waves[i] = nodetree.NewString(d.client, wave, d.logger)
	}

	trigSource, err := d.nodeInfo(ctx, "scopes/0/trigger/channel")
	if err != nil {
		return nil, err
	}
	s.TriggerSource = nodetree.NewMapped(d.client, trigSource, d.logger)

	trigDelay, err := d.nodeInfo(ctx, "scopes/0/trigger/delay")
	if err != nil {
		return nil, err
	}
	s.TriggerDelay = nodetree.NewFloat(d.client, trigDelay, d.logger,
		nodetree.MultipleOf(2e-9, nodetree.RoundNearest))

	length, err := d.nodeInfo(ctx, "scopes/0/length")
	if err != nil {
		return nil, err
	}
	s.Length = nodetree.NewInt(d.client, length, d.logger,
		nodetree.GreaterEqual[int64](16),
		nodetree.SmallerEqual[int64](1<<18),
		nodetree.MultipleOf[int64](16, nodetree.RoundDown))

	timeBase, err := d.nodeInfo(ctx, "scopes/0/time")
	if err != nil {
		return nil, err
	}
	s.Time = nodetree.NewMapped(d.client, timeBase, d.logger)

	segEnable, err := d.nodeInfo(ctx, "scopes/0/segments/enable")
	if err != nil {
		return nil, err
	}
	s.segmentsEnable = nodetree.NewTrueFalse(d.client, segEnable, d.logger)

	segCount, err := d.nodeInfo(ctx, "scopes/0/segments/count")
	if err != nil {
		return nil, err
	}
	s.segmentsCount = nodetree.NewInt(d.client, segCount, d.logger,
		nodetree.Greater[int64](0))

	avgEnable, err := d.nodeInfo(ctx, "scopes/0/averaging/enable")
	if err != nil {
		return nil, err
	}
	s.averagingEnable = nodetree.NewTrueFalse(d.client, avgEnable, d.logger)

	avgCount, err := d.nodeInfo(ctx, "scopes/0/averaging/count")
	if err != nil {
		return nil, err
	}
	s.averagingCount = nodetree.NewInt(d.client, avgCount, d.logger,
		nodetree.Greater[int64](0))

	return s, nil
}

// ChannelEnable returns the on/off parameter of a recording channel.
func (s *Scope) ChannelEnable(index int) (*nodetree.Parameter[string], error) {
	if index < 0 || index >= scopeChannels {
		return nil, fmt.Errorf("%w: scope channel %d does not exist", domain.ErrInvalidValue, index)
	}
	return s.channels[index], nil
}

// InputSelect returns the input selection parameter of a recording channel.
func (s *Scope) InputSelect(index int) (*nodetree.Parameter[string], error) {
	if index < 0 || index >= scopeChannels {
		return nil, fmt.Errorf("%w: scope channel %d does not exist", domain.ErrInvalidValue, index)
	}
	return s.inputSelects[index], nil
}

// Arm enables the scope so the next trigger starts an acquisition.
func (s *Scope) Arm(ctx context.Context) error {
	_, err := s.enable.Set(ctx, true)
	return err
}

// Stop disables the scope.
func (s *Scope) Stop(ctx context.Context) error {
	_, err := s.enable.Set(ctx, false)
	return err
}

// Read returns the raw wave data recorded on the given channel.
func (s *Scope) Read(ctx context.Context, index int) (string, error) {
	if index < 0 || index >= scopeChannels {
		return "", fmt.Errorf("%w: scope channel %d does not exist", domain.ErrInvalidValue, index)
	}
	return s.waves[index].Get(ctx)
}

// EnableSegments splits the scope memory into count segments. A count of
// zero disables segmented recording.
func (s *Scope) EnableSegments(ctx context.Context, count int64) error {
	if count == 0 {
		_, err := s.segmentsEnable.Set(ctx, false)
		return err
	}
	if _, err := s.segmentsCount.Set(ctx, count); err != nil {
		return err
	}
	if _, err := s.segmentsEnable.Set(ctx, true); err != nil {
		return err
	}
	s.device.logger.Debug("scope segments enabled", log.Int64("segments", count))
	return nil
}

// EnableAveraging averages count acquisitions in hardware. A count of
// zero disables averaging.
func (s *Scope) EnableAveraging(ctx context.Context, count int64) error {
	if count == 0 {
		_, err := s.averagingEnable.Set(ctx, false)
		return err
	}
	if _, err := s.averagingCount.Set(ctx, count); err != nil {
		return err
	}
	if _, err := s.averagingEnable.Set(ctx, true); err != nil {
		return err
	}
	s.device.logger.Debug("scope averaging enabled", log.Int64("acquisitions", count))
	return nil
}
