package nodetree

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/qbench-io/shftk/internal/domain"
	"github.com/qbench-io/shftk/pkg/log"
)

// Parameter is a typed handle on a single device node. Set runs the
// configured validators and writes the encoded value; Get reads the raw
// wire value and decodes it. Parameters are cheap to create and safe to
// share as long as the underlying Client is.
type Parameter[T any] struct {
	node    Node
	client  Client
	logger  log.Logger
	setters []func(T) (T, error)
	encode  func(T) (string, error)
	decode  func(string) (T, error)
}

// Node returns the node metadata this parameter is bound to.
func (p *Parameter[T]) Node() Node {
	return p.node
}

// Set validates the value and writes it to the device. It returns the
// value actually written, which may differ from the requested one when a
// granularity validator adjusted it; the adjustment is logged as a warning.
func (p *Parameter[T]) Set(ctx context.Context, value T) (T, error) {
	var zero T
	if !p.node.Writable() {
		return zero, fmt.Errorf("%w: %s", domain.ErrNotWritable, p.node.Path)
	}
	v := value
	var err error
	for _, f := range p.setters {
		if v, err = f(v); err != nil {
			return zero, fmt.Errorf("set %s: %w", p.node.Path, err)
		}
	}
	raw, err := p.encode(v)
	if err != nil {
		return zero, fmt.Errorf("set %s: %w", p.node.Path, err)
	}
	if requested, encErr := p.encode(value); encErr == nil && requested != raw {
		p.logger.Warn("parameter value adjusted",
			log.String("node", p.node.Path),
			log.String("requested", requested),
			log.String("written", raw))
	}
	if err := p.client.Set(ctx, p.node.Path, raw); err != nil {
		return zero, err
	}
	return v, nil
}

// Get reads the current value from the device.
func (p *Parameter[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if !p.node.Readable() {
		return zero, fmt.Errorf("%w: %s", domain.ErrNotReadable, p.node.Path)
	}
	raw, err := p.client.Get(ctx, p.node.Path)
	if err != nil {
		return zero, err
	}
	v, err := p.decode(raw)
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", p.node.Path, err)
	}
	return v, nil
}

// NewFloat creates a float parameter with the given validators.
func NewFloat(client Client, node Node, logger log.Logger, validators ...Validator[float64]) *Parameter[float64] {
	p := &Parameter[float64]{
		node:   node,
		client: client,
		logger: logger,
		encode: func(v float64) (string, error) {
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		},
		decode: func(raw string) (float64, error) {
			return strconv.ParseFloat(strings.TrimSpace(raw), 64)
		},
	}
	for _, v := range validators {
		p.setters = append(p.setters, v)
	}
	return p
}

// NewInt creates an integer parameter with the given validators.
func NewInt(client Client, node Node, logger log.Logger, validators ...Validator[int64]) *Parameter[int64] {
	p := &Parameter[int64]{
		node:   node,
		client: client,
		logger: logger,
		encode: func(v int64) (string, error) {
			return strconv.FormatInt(v, 10), nil
		},
		decode: func(raw string) (int64, error) {
			return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		},
	}
	for _, v := range validators {
		p.setters = append(p.setters, v)
	}
	return p
}

// NewString creates a plain string parameter without translation.
func NewString(client Client, node Node, logger log.Logger) *Parameter[string] {
	return &Parameter[string]{
		node:   node,
		client: client,
		logger: logger,
		encode: func(v string) (string, error) { return v, nil },
		decode: func(raw string) (string, error) { return raw, nil },
	}
}

// NewOnOff creates a parameter that accepts "on"/"off" and stores 1/0.
func NewOnOff(client Client, node Node, logger log.Logger) *Parameter[string] {
	return &Parameter[string]{
		node:   node,
		client: client,
		logger: logger,
		encode: func(v string) (string, error) {
			switch v {
			case "on":
				return "1", nil
			case "off":
				return "0", nil
			default:
				return "", fmt.Errorf("%w: %q must be either \"on\" or \"off\"", domain.ErrInvalidValue, v)
			}
		},
		decode: func(raw string) (string, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return "", err
			}
			if n == 0 {
				return "off", nil
			}
			return "on", nil
		},
	}
}

// NewTrueFalse creates a boolean parameter stored as 1/0.
func NewTrueFalse(client Client, node Node, logger log.Logger) *Parameter[bool] {
	return &Parameter[bool]{
		node:   node,
		client: client,
		logger: logger,
		encode: func(v bool) (string, error) {
			if v {
				return "1", nil
			}
			return "0", nil
		},
		decode: func(raw string) (bool, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return false, err
			}
			return n != 0, nil
		},
	}
}

// NewMapped creates a keyword parameter mapped through the options the
// node declares, e.g. "internal" <-> 0. Raw integer strings that name a
// valid option are accepted as-is.
func NewMapped(client Client, node Node, logger log.Logger) *Parameter[string] {
	return &Parameter[string]{
		node:   node,
		client: client,
		logger: logger,
		encode: func(v string) (string, error) {
			for raw, keyword := range node.Options {
				if keyword == v {
					return strconv.FormatInt(raw, 10), nil
				}
			}
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				if _, ok := node.Options[n]; ok {
					return v, nil
				}
			}
			return "", fmt.Errorf("%w: %q is not one of %s", domain.ErrInvalidValue, v, optionList(node.Options))
		},
		decode: func(raw string) (string, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return "", err
			}
			keyword, ok := node.Options[n]
			if !ok {
				return "", fmt.Errorf("%w: option %d is not declared for %s", domain.ErrInvalidValue, n, node.Path)
			}
			return keyword, nil
		},
	}
}

// optionList renders the allowed keywords of an enumerated node in a
// stable order for error messages.
func optionList(options map[int64]string) string {
	keywords := make([]string, 0, len(options))
	for _, k := range options {
		keywords = append(keywords, strconv.Quote(k))
	}
	sort.Strings(keywords)
	return "[" + strings.Join(keywords, ", ") + "]"
}
