package shfqa

import (
	"context"

	"github.com/qbench-io/shftk/pkg/nodetree"
)

// Channel is one qachannel of the analyzer: an input/output pair with a
// configurable analysis band, owning a Generator and a Sweeper.
type Channel struct {
	device *Device
	index  int

	// Input switches the signal input, "on" or "off".
	Input *nodetree.Parameter[string]

	// InputRange is the maximal input power range in dBm, between -50
	// and 10 with a resolution of 5 dBm; off-grid values snap to the
	// nearest available range.
	InputRange *nodetree.Parameter[int64]

	// Output switches the signal output, "on" or "off".
	Output *nodetree.Parameter[string]

	// OutputRange is the maximal output power range in dBm, with the
	// same grid as InputRange.
	OutputRange *nodetree.Parameter[int64]

	// CenterFreq is the center frequency of the analysis band in Hz,
	// between 1 GHz and 8 GHz on a 100 MHz grid.
	CenterFreq *nodetree.Parameter[float64]

	// Mode selects between "spectroscopy" and "readout".
	Mode *nodetree.Parameter[string]

	generator *Generator
	sweeper   *Sweeper
}

func newChannel(ctx context.Context, device *Device, index int) (*Channel, error) {
	ch := &Channel{device: device, index: index}
	if err := ch.initParams(ctx); err != nil {
		return nil, err
	}
	gen, err := newGenerator(ctx, ch)
	if err != nil {
		return nil, err
	}
	ch.generator = gen
	sw, err := newSweeper(ctx, ch)
	if err != nil {
		return nil, err
	}
	ch.sweeper = sw
	return ch, nil
}

// Index returns the channel position on the instrument.
func (c *Channel) Index() int {
	return c.index
}

// Generator returns the channel's readout pulse generator.
func (c *Channel) Generator() *Generator {
	return c.generator
}

// Sweeper returns the channel's spectroscopy sweeper.
func (c *Channel) Sweeper() *Sweeper {
	return c.sweeper
}

func (c *Channel) initParams(ctx context.Context) error {
	d := c.device

	input, err := d.nodeInfo(ctx, "qachannels/%d/input/on", c.index)
	if err != nil {
		return err
	}
	c.Input = nodetree.NewOnOff(d.client, input, d.logger)

	inputRange, err := d.nodeInfo(ctx, "qachannels/%d/input/range", c.index)
	if err != nil {
		return err
	}
	c.InputRange = nodetree.NewInt(d.client, inputRange, d.logger,
		nodetree.GreaterEqual[int64](-50),
		nodetree.SmallerEqual[int64](10),
		nodetree.MultipleOf[int64](5, nodetree.RoundNearest))

	output, err := d.nodeInfo(ctx, "qachannels/%d/output/on", c.index)
	if err != nil {
		return err
	}
	c.Output = nodetree.NewOnOff(d.client, output, d.logger)

	outputRange, err := d.nodeInfo(ctx, "qachannels/%d/output/range", c.index)
	if err != nil {
		return err
	}
	c.OutputRange = nodetree.NewInt(d.client, outputRange, d.logger,
		nodetree.GreaterEqual[int64](-50),
		nodetree.SmallerEqual[int64](10),
		nodetree.MultipleOf[int64](5, nodetree.RoundNearest))

	centerFreq, err := d.nodeInfo(ctx, "qachannels/%d/centerfreq", c.index)
	if err != nil {
		return err
	}
	c.CenterFreq = nodetree.NewFloat(d.client, centerFreq, d.logger,
		nodetree.GreaterEqual(1e9),
		nodetree.SmallerEqual(8e9),
		nodetree.MultipleOf(100e6, nodetree.RoundNearest))

	mode, err := d.nodeInfo(ctx, "qachannels/%d/mode", c.index)
	if err != nil {
		return err
	}
	c.Mode = nodetree.NewMapped(d.client, mode, d.logger)
	return nil
}
