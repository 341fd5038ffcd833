// Package dataserver implements the node client against the instrument
// data server's line protocol.
//
// The protocol is text-based: one tab-separated request line per call,
// one tab-separated reply line per request. Replies start with "OK"
// followed by the payload fields, or "ERR" followed by a message.
// Vector payloads are base64-encoded on the wire so they stay
// line-safe regardless of content.
package dataserver

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qbench-io/shftk/internal/domain"
	"github.com/qbench-io/shftk/pkg/log"
	"github.com/qbench-io/shftk/pkg/nodetree"
)

// Config holds the connection settings for the data server.
type Config struct {
	// Host is the data server host name or address.
	Host string

	// Port is the data server TCP port.
	Port int

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// RequestTimeout bounds a single request/reply round trip.
	RequestTimeout time.Duration
}

// Client is a synchronous data server connection. All requests share one
// TCP connection and are serialized by an internal mutex; concurrent
// callers block until the connection is free.
type Client struct {
	cfg    Config
	logger log.Logger

	mu   sync.Mutex
	conn net.Conn
	rd   *bufio.Reader
}

// Dial connects to the data server.
func Dial(ctx context.Context, cfg Config, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	d := net.Dialer{Timeout: cfg.DialTimeout}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dataserver: dial %s: %w", addr, err)
	}
	logger.Info("connected to data server",
		log.String("addr", addr),
		log.Duration("request_timeout", cfg.RequestTimeout))
	return &Client{
		cfg:    cfg,
		logger: logger,
		conn:   conn,
		rd:     bufio.NewReader(conn),
	}, nil
}

// Close terminates the connection. Further calls fail with ErrNotConnected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return domain.ErrNotConnected
	}
	err := c.conn.Close()
	c.conn = nil
	c.rd = nil
	return err
}

// Get reads the raw string value of a scalar node.
func (c *Client) Get(ctx context.Context, path string) (string, error) {
	fields, err := c.roundTrip(ctx, "GET", path)
	if err != nil {
		return "", err
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty reply for %s", domain.ErrDevice, path)
	}
	return fields[0], nil
}

// Set writes the raw string value of a scalar node.
func (c *Client) Set(ctx context.Context, path string, value string) error {
	_, err := c.roundTrip(ctx, "SET", path, value)
	return err
}

// SetVector writes a string payload to a vector node in one transfer.
func (c *Client) SetVector(ctx context.Context, path string, payload string) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(payload))
	_, err := c.roundTrip(ctx, "SETV", path, encoded)
	return err
}

// ListNodes returns the paths of all nodes below the given prefix.
func (c *Client) ListNodes(ctx context.Context, prefix string) ([]string, error) {
	fields, err := c.roundTrip(ctx, "LIST", prefix)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			paths = append(paths, f)
		}
	}
	return paths, nil
}

// NodeInfo returns the metadata of a single node. The server replies
// with a JSON object describing the node.
func (c *Client) NodeInfo(ctx context.Context, path string) (nodetree.Node, error) {
	fields, err := c.roundTrip(ctx, "INFO", path)
	if err != nil {
		return nodetree.Node{}, err
	}
	if len(fields) == 0 {
		return nodetree.Node{}, fmt.Errorf("%w: empty node info for %s", domain.ErrDevice, path)
	}
	var node nodetree.Node
	if err := json.Unmarshal([]byte(strings.Join(fields, "\t")), &node); err != nil {
		return nodetree.Node{}, fmt.Errorf("dataserver: decode node info for %s: %w", path, err)
	}
	if node.Path == "" {
		node.Path = path
	}
	return node, nil
}

// roundTrip sends one request line and reads one reply line. Each round
// trip is tagged with a short transaction id for log correlation.
func (c *Client) roundTrip(ctx context.Context, verb string, args ...string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, domain.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := uuid.NewString()[:8]
	line := verb + "\t" + strings.Join(args, "\t") + "\n"

	deadline := time.Now().Add(c.cfg.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("dataserver: set deadline: %w", err)
	}

	c.logger.Debug("request",
		log.String("txn", txn),
		log.String("verb", verb),
		log.String("args", strings.Join(args, " ")))

	if _, err := c.conn.Write([]byte(line)); err != nil {
		return nil, fmt.Errorf("dataserver: write: %w", err)
	}
	reply, err := c.rd.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("dataserver: read: %w", err)
	}

	fields := strings.Split(strings.TrimRight(reply, "\r\n"), "\t")
	switch fields[0] {
	case "OK":
		return fields[1:], nil
	case "ERR":
		msg := "unknown error"
		if len(fields) > 1 {
			msg = strings.Join(fields[1:], " ")
		}
		c.logger.Warn("request rejected", log.String("txn", txn), log.String("reason", msg))
		return nil, fmt.Errorf("%w: %s", domain.ErrDevice, msg)
	default:
		return nil, fmt.Errorf("%w: malformed reply %q", domain.ErrDevice, reply)
	}
}
