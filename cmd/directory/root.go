package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/internal/app"
	"gitlab.com/dirk.krummacker/person-directory/internal/config"
	"gitlab.com/dirk.krummacker/person-directory/internal/gateway"
	"gitlab.com/dirk.krummacker/person-directory/internal/logger"
	"gitlab.com/dirk.krummacker/person-directory/internal/notify"
	"gitlab.com/dirk.krummacker/person-directory/internal/render"
)

// cli holds what the subcommands share. It is filled in by the persistent pre-run.
type cli struct {
	configPath  string
	logLevel    string
	showMetrics bool

	logger  *zap.Logger
	gw      *gateway.Client
	metrics *prometheus.Registry
	app    *app.App
	styles render.Styles
}

func newRootCmd() *cobra.Command {
	c := &cli{styles: render.DefaultStyles()}
	root := &cobra.Command{
		Use:           "directory",
		Short:         "Manage the person directory",
		Long:          "directory lists, searches, creates, updates and deletes person records of the directory back end.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.showMetrics {
				c.printMetrics(cmd.ErrOrStderr())
			}
			if c.gw != nil {
				c.gw.CloseIdleConnections()
			}
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path of the configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the configuration")
	root.PersistentFlags().BoolVar(&c.showMetrics, "metrics", false, "print the number of back end calls per operation and outcome")

	root.AddCommand(
		c.listCmd(),
		c.searchCmd(),
		c.createCmd(),
		c.updateCmd(),
		c.deleteCmd(),
	)
	return root
}

// setup loads the configuration and builds the controllers. Notices are printed on the error
// stream of cmd.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return c.fail(cmd, err)
	}
	level := cfg.Logging.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	c.logger = logger.New(level, cfg.Logging.Format)

	c.metrics = prometheus.NewRegistry()
	c.gw = gateway.New(gateway.Config{
		RESTBase:        cfg.Gateway.RESTBase,
		GraphQLEndpoint: cfg.Gateway.GraphQLEndpoint,
		Timeout:         cfg.Gateway.Timeout,
	}, c.logger.Named("gateway"), gateway.NewMetrics(c.metrics))

	errOut := cmd.ErrOrStderr()
	sink := notify.SinkFunc(func(n notify.Notice) {
		fmt.Fprintln(errOut, render.Notice(n, c.styles))
	})
	c.app = app.New(c.gw, sink, c.logger)
	return nil
}

// fail prints err and returns it so that the command exits non-zero.
func (c *cli) fail(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), c.styles.Error.Render("error: "+err.Error()))
	return err
}

func (c *cli) printDirectory(out io.Writer) {
	fmt.Fprint(out, render.Directory(c.app.Directory.View(), c.styles))
}

func (c *cli) printMetrics(out io.Writer) {
	counts, err := gateway.Summarize(c.metrics)
	if err != nil {
		c.logger.Warn("could not read gateway metrics", zap.Error(err))
		return
	}
	for _, n := range counts {
		fmt.Fprintln(out, c.styles.Muted.Render(fmt.Sprintf("%s %s %.0f", n.Operation, n.Outcome, n.Count)))
	}
}
