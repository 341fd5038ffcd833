package shfqa

import (
	"context"
	"fmt"

	"github.com/qbench-io/shftk/internal/domain"
	"github.com/qbench-io/shftk/pkg/commandtable"
	"github.com/qbench-io/shftk/pkg/nodetree"
)

// Generator is the readout pulse generator of a qachannel. It owns the
// command table loader for its sequencer unit.
type Generator struct {
	channel *Channel

	enable *nodetree.Parameter[bool]
	ready  *nodetree.Parameter[int64]

	// Single selects single shot mode.
	Single *nodetree.Parameter[bool]

	// DigTrigger1Source selects the source of digital trigger 1.
	DigTrigger1Source *nodetree.Parameter[string]

	// DigTrigger2Source selects the source of digital trigger 2.
	DigTrigger2Source *nodetree.Parameter[string]

	loader *commandtable.Loader
}

// SequenceSettings describes the sequencer program flavor a caller
// intends to run on the generator.
type SequenceSettings struct {
	SequenceType SequenceType
	TriggerMode  TriggerMode
}

func newGenerator(ctx context.Context, channel *Channel) (*Generator, error) {
	g := &Generator{channel: channel}
	d := channel.device

	enable, err := d.nodeInfo(ctx, "qachannels/%d/generator/sequencer/enable", channel.index)
	if err != nil {
		return nil, err
	}
	g.enable = nodetree.NewTrueFalse(d.client, enable, d.logger)

	trig1, err := d.nodeInfo(ctx, "qachannels/%d/generator/sequencer/auxtriggers/0/channel", channel.index)
	if err != nil {
		return nil, err
	}
	g.DigTrigger1Source = nodetree.NewMapped(d.client, trig1, d.logger)

	trig2, err := d.nodeInfo(ctx, "qachannels/%d/generator/sequencer/auxtriggers/1/channel", channel.index)
	if err != nil {
		return nil, err
	}
	g.DigTrigger2Source = nodetree.NewMapped(d.client, trig2, d.logger)

	ready, err := d.nodeInfo(ctx, "qachannels/%d/generator/sequencer/ready", channel.index)
	if err != nil {
		return nil, err
	}
	g.ready = nodetree.NewInt(d.client, ready, d.logger)

	single, err := d.nodeInfo(ctx, "qachannels/%d/generator/sequencer/single", channel.index)
	if err != nil {
		return nil, err
	}
	g.Single = nodetree.NewTrueFalse(d.client, single, d.logger)

	loader, err := commandtable.New(commandtable.Config{
		SchemaURL: d.schemaURL,
		Index:     channel.index,
		Fetcher:   d.fetcher,
		Writer:    serialWriter{device: d},
		Logger:    d.logger,
	})
	if err != nil {
		return nil, err
	}
	g.loader = loader
	return g, nil
}

// CommandTable returns the loader that validates and uploads command
// tables for this generator.
func (g *Generator) CommandTable() *commandtable.Loader {
	return g.loader
}

// Run starts the sequencer.
func (g *Generator) Run(ctx context.Context) error {
	_, err := g.enable.Set(ctx, true)
	return err
}

// Stop halts the sequencer.
func (g *Generator) Stop(ctx context.Context) error {
	_, err := g.enable.Set(ctx, false)
	return err
}

// Ready reports whether the sequencer has a program loaded and is ready
// to be enabled.
func (g *Generator) Ready(ctx context.Context) (bool, error) {
	v, err := g.ready.Get(ctx)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// CheckSequenceSettings verifies the requested sequence type and trigger
// mode against what the instrument supports.
func (g *Generator) CheckSequenceSettings(s SequenceSettings) error {
	d := g.channel.device
	if s.SequenceType != "" && !containsSequence(d.AllowedSequences(), s.SequenceType) {
		return fmt.Errorf("%w: sequence type %q must be one of %v",
			domain.ErrInvalidValue, s.SequenceType, d.AllowedSequences())
	}
	if s.TriggerMode != "" && !containsTrigger(d.AllowedTriggerModes(), s.TriggerMode) {
		return fmt.Errorf("%w: trigger mode %q must be one of %v",
			domain.ErrInvalidValue, s.TriggerMode, d.AllowedTriggerModes())
	}
	return nil
}

func containsSequence(allowed []SequenceType, s SequenceType) bool {
	for _, a := range allowed {
		if a == s {
			return true
		}
	}
	return false
}

func containsTrigger(allowed []TriggerMode, t TriggerMode) bool {
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

// serialWriter prefixes the device serial onto the loader's relative
// upload path before handing the payload to the node client.
type serialWriter struct {
	device *Device
}

func (w serialWriter) SetVector(ctx context.Context, path string, payload string) error {
	return w.device.client.SetVector(ctx, w.device.serial+"/"+path, payload)
}
