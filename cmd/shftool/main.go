// Command shftool controls SHF-class quantum analyzers from the command
// line: node access, command table upload and continuous table watching.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/qbench-io/shftk"
	"github.com/qbench-io/shftk/internal/config"
	"github.com/qbench-io/shftk/pkg/log"
	"github.com/qbench-io/shftk/plugins/tablewatcher"
)

var exampleUsage = strings.TrimSpace(`
  shftool --serial dev12000 info
  shftool --serial dev12000 upload --channel 0 --file table.json
  shftool --serial dev12000 set dev12000/qachannels/0/centerfreq 5.1e9
  shftool --serial dev12000 watch --channel 0 --file table.json
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli holds the state shared by all subcommands after config resolution.
type cli struct {
	cfgPath string
	cfg     config.Config
	logger  log.Logger
}

func main() {
	c := &cli{cfg: config.DefaultConfig()}

	root := &cobra.Command{
		Use:     "shftool",
		Short:   "Control an SHF quantum analyzer through the data server",
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.resolveConfig(cmd)
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "config file (default $HOME/.shftk/config.toml)")
	pf.StringVar(&c.cfg.Host, "host", c.cfg.Host, "data server host")
	pf.IntVar(&c.cfg.Port, "port", c.cfg.Port, "data server port")
	pf.StringVar(&c.cfg.Serial, "serial", c.cfg.Serial, "device serial, e.g. dev12000")
	pf.StringVar(&c.cfg.SchemaURL, "schema-url", c.cfg.SchemaURL, "command table schema URL")
	pf.DurationVar(&c.cfg.HTTPTimeout, "http-timeout", c.cfg.HTTPTimeout, "schema fetch timeout")
	pf.DurationVar(&c.cfg.DialTimeout, "dial-timeout", c.cfg.DialTimeout, "data server dial timeout")
	pf.DurationVar(&c.cfg.RequestTimeout, "request-timeout", c.cfg.RequestTimeout, "data server request timeout")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&c.cfg.LogFormat, "log-format", c.cfg.LogFormat, "log format (console, json)")

	root.AddCommand(
		newInfoCmd(c),
		newGetCmd(c),
		newSetCmd(c),
		newUploadCmd(c),
		newWatchCmd(c),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig loads file and environment configuration underneath the
// explicitly set flags: flags > env > file > defaults.
func (c *cli) resolveConfig(cmd *cobra.Command) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}
	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := config.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.logger = config.NewLogger(c.cfg.LogLevel, c.cfg.LogFormat)
	return nil
}

// connect builds a session and connects it.
func (c *cli) connect(ctx context.Context, opts ...shftk.Option) (*shftk.Session, error) {
	opts = append(opts, shftk.WithLogger(c.logger))
	session, err := shftk.New(c.cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := session.Connect(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

func newInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print a summary of the connected device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			dev := session.Device()
			fmt.Printf("serial:    %s\n", dev.Serial())
			fmt.Printf("channels:  %d\n", len(dev.Channels()))
			if status, err := dev.RefClockStatus.Get(ctx); err == nil {
				fmt.Printf("ref clock: %s\n", status)
			}
			return nil
		},
	}
}

func newGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <node>",
		Short: "Read a device node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			value, err := session.Client().Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
}

func newSetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set <node> <value>",
		Short: "Write a device node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			return session.Client().Set(ctx, args[0], args[1])
		},
	}
}

func newUploadCmd(c *cli) *cobra.Command {
	var channel int
	var file string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Validate and upload a command table",
		Long: "Reads a command table from a file (or stdin with --file -), validates it\n" +
			"against the published JSON Schema and uploads it to the generator of the\n" +
			"selected channel. Nothing is transmitted when validation fails.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var data []byte
			var err error
			if file == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read command table: %w", err)
			}

			session, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			ch, err := session.Device().Channel(channel)
			if err != nil {
				return err
			}
			return ch.Generator().CommandTable().LoadAny(ctx, string(data))
		},
	}
	cmd.Flags().IntVar(&channel, "channel", 0, "qachannel index")
	cmd.Flags().StringVar(&file, "file", "-", "command table file, - for stdin")
	return cmd
}

func newWatchCmd(c *cli) *cobra.Command {
	var channel int
	var file string
	var debounce time.Duration
	var retryInterval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a command table file and re-upload it on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			watcherCfg := tablewatcher.DefaultConfig(file, channel)
			if debounce > 0 {
				watcherCfg.DebounceDelay = debounce
			}
			if retryInterval > 0 {
				watcherCfg.RetryInterval = retryInterval
			}

			session, err := c.connect(ctx, shftk.WithPlugin(tablewatcher.New(watcherCfg)))
			if err != nil {
				return err
			}
			defer session.Close()

			c.logger.Info("watching command table file",
				log.String("file", file),
				log.Int("channel", channel))
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().IntVar(&channel, "channel", 0, "qachannel index")
	cmd.Flags().StringVar(&file, "file", "", "command table file to watch")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "debounce delay after a change")
	cmd.Flags().DurationVar(&retryInterval, "retry-interval", 0, "retry delay after a failed upload")
	return cmd
}
