package shfqa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qbench-io/shftk/internal/domain"
	"github.com/qbench-io/shftk/pkg/commandtable"
	"github.com/qbench-io/shftk/pkg/log"
	"github.com/qbench-io/shftk/pkg/nodetree"
)

// SequenceType identifies a sequencer program flavor the instrument can run.
type SequenceType string

// Sequence types supported by the SHFQA.
const (
	SequenceNone   SequenceType = "None"
	SequenceCustom SequenceType = "Custom"
)

// TriggerMode identifies a generator triggering scheme.
type TriggerMode string

// Trigger modes supported by the SHFQA.
const (
	TriggerNone TriggerMode = "None"
)

// Config holds the collaborators needed to drive an SHFQA.
type Config struct {
	// Serial is the device serial, e.g. "dev12000".
	Serial string

	// SchemaURL is where the command table JSON Schema is published.
	SchemaURL string

	// Client is the node transport. Required.
	Client nodetree.Client

	// Fetcher retrieves the command table schema. Required.
	Fetcher commandtable.SchemaFetcher

	// Logger receives structured progress messages. Defaults to a
	// no-op logger when nil.
	Logger log.Logger
}

// Device is a connected SHFQA quantum analyzer.
type Device struct {
	serial    string
	schemaURL string
	client    nodetree.Client
	fetcher   commandtable.SchemaFetcher
	logger    log.Logger

	channels []*Channel
	scope    *Scope

	// RefClock selects the intended reference clock source, one of
	// "internal" or "external".
	RefClock *nodetree.Parameter[string]

	// RefClockActual reports the reference clock source actually in use.
	RefClockActual *nodetree.Parameter[string]

	// RefClockStatus reports the reference clock lock state, one of
	// "locked", "error" or "busy".
	RefClockStatus *nodetree.Parameter[string]
}

// Connect builds the device object, discovers its channels and wires all
// parameters. It performs node metadata lookups but changes no setting.
func Connect(ctx context.Context, cfg Config) (*Device, error) {
	if cfg.Serial == "" {
		return nil, fmt.Errorf("%w: device serial is required", domain.ErrInvalidConfig)
	}
	if cfg.SchemaURL == "" {
		return nil, fmt.Errorf("%w: schema URL is required", domain.ErrInvalidConfig)
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: node client is required", domain.ErrInvalidConfig)
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("%w: schema fetcher is required", domain.ErrInvalidConfig)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	d := &Device{
		serial:    strings.ToLower(cfg.Serial),
		schemaURL: cfg.SchemaURL,
		client:    cfg.Client,
		fetcher:   cfg.Fetcher,
		logger:    logger,
	}
	if err := d.initParams(ctx); err != nil {
		return nil, err
	}
	if err := d.initChannels(ctx); err != nil {
		return nil, err
	}
	if err := d.initScope(ctx); err != nil {
		return nil, err
	}
	logger.Info("device connected",
		log.String("serial", d.serial),
		log.Int("channels", len(d.channels)))
	return d, nil
}

// Serial returns the device serial.
func (d *Device) Serial() string {
	return d.serial
}

// Channels returns all discovered qachannels.
func (d *Device) Channels() []*Channel {
	return d.channels
}

// Channel returns the qachannel with the given index.
func (d *Device) Channel(index int) (*Channel, error) {
	if index < 0 || index >= len(d.channels) {
		return nil, fmt.Errorf("%w: channel %d does not exist (device has %d)",
			domain.ErrInvalidValue, index, len(d.channels))
	}
	return d.channels[index], nil
}

// Scope returns the device scope.
func (d *Device) Scope() *Scope {
	return d.scope
}

// AllowedSequences lists the sequence types this instrument supports.
func (d *Device) AllowedSequences() []SequenceType {
	return []SequenceType{SequenceNone, SequenceCustom}
}

// AllowedTriggerModes lists the trigger modes this instrument supports.
func (d *Device) AllowedTriggerModes() []TriggerMode {
	return []TriggerMode{TriggerNone}
}

// FactoryReset would load the factory default settings. The SHFQA does
// not support the factory preset yet, so the call only logs a warning.
func (d *Device) FactoryReset(ctx context.Context) error {
	d.logger.Warn("factory preset is not yet supported",
		log.String("serial", strings.ToUpper(d.serial)))
	return nil
}

// SetTriggerLoopback starts a 1 kHz continuous trigger pulse from
// marker 1 A routed to trigger in 1 A through the internal loopback.
func (d *Device) SetTriggerLoopback(ctx context.Context) error {
	const (
		markerChannel  = 0
		lowTrigger     = "2"
		continuousTrig = "1"
	)
	if err := d.client.Set(ctx, d.path("raw/markers/*/testsource"), lowTrigger); err != nil {
		return err
	}
	if err := d.client.Set(ctx, d.path("raw/markers/%d/testsource", markerChannel), continuousTrig); err != nil {
		return err
	}
	if err := d.client.Set(ctx, d.path("raw/markers/%d/frequency", markerChannel), "1000"); err != nil {
		return err
	}
	if err := d.client.Set(ctx, d.path("raw/triggers/%d/loopback", markerChannel), "1"); err != nil {
		return err
	}
	// Give the loopback path time to settle before the caller triggers.
	select {
	case <-time.After(200 * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// path builds a serial-prefixed node path.
func (d *Device) path(format string, args ...interface{}) string {
	return d.serial + "/" + fmt.Sprintf(format, args...)
}

// nodeInfo looks up the metadata of a serial-relative node.
func (d *Device) nodeInfo(ctx context.Context, format string, args ...interface{}) (nodetree.Node, error) {
	return d.client.NodeInfo(ctx, d.path(format, args...))
}

func (d *Device) initParams(ctx context.Context) error {
	source, err := d.nodeInfo(ctx, "system/clocks/referenceclock/in/source")
	if err != nil {
		return err
	}
	d.RefClock = nodetree.NewMapped(d.client, source, d.logger)

	actual, err := d.nodeInfo(ctx, "system/clocks/referenceclock/in/sourceactual")
	if err != nil {
		return err
	}
	d.RefClockActual = nodetree.NewMapped(d.client, actual, d.logger)

	status, err := d.nodeInfo(ctx, "system/clocks/referenceclock/in/status")
	if err != nil {
		return err
	}
	d.RefClockStatus = nodetree.NewMapped(d.client, status, d.logger)
	return nil
}

func (d *Device) initChannels(ctx context.Context) error {
	count, err := d.numChannels(ctx)
	if err != nil {
		return err
	}
	d.channels = make([]*Channel, count)
	for i := 0; i < count; i++ {
		ch, err := newChannel(ctx, d, i)
		if err != nil {
			return err
		}
		d.channels[i] = ch
	}
	return nil
}

// numChannels counts the qachannels the instrument actually exposes by
// listing the node tree below qachannels/.
func (d *Device) numChannels(ctx context.Context) (int, error) {
	prefix := d.path("qachannels/")
	paths, err := d.client.ListNodes(ctx, prefix)
	if err != nil {
		return 0, err
	}
	seen := map[string]bool{}
	for _, p := range paths {
		rest := strings.TrimPrefix(p, prefix)
		if rest == p {
			continue
		}
		index := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			index = rest[:i]
		}
		if index != "" {
			seen[index] = true
		}
	}
	if len(seen) == 0 {
		return 0, fmt.Errorf("%w: no qachannels found below %s", domain.ErrDevice, prefix)
	}
	return len(seen), nil
}

func (d *Device) initScope(ctx context.Context) error {
	scope, err := newScope(ctx, d)
	if err != nil {
		return err
	}
	d.scope = scope
	return nil
}
