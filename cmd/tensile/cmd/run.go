package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/calvinmclean/tensile/controller"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// connection flags shared by run, sim and ui
type connFlags struct {
	configPath  string
	port        string
	baud        int
	outputDir   string
	metricsAddr string
	twchartAddr string
	session     string
	channels    string
}

func (f *connFlags) register(c *cobra.Command) {
	c.Flags().StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	c.Flags().StringVarP(&f.port, "port", "p", "", "serial port, \"sim\" for the simulator. Empty picks the first USB port")
	c.Flags().IntVarP(&f.baud, "baud", "b", 0, "baud rate")
	c.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "directory for saved runs")
	c.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	c.Flags().StringVar(&f.twchartAddr, "twchart-addr", "", "TWChart server to record runs to")
	c.Flags().StringVar(&f.session, "session", "", "TWChart session name")
	c.Flags().StringVar(&f.channels, "channels", "", "TWChart channel mapping in format \"1=Force,2=Displacement\"")
}

// config loads the file, then the environment, then the flags that were set
func (f *connFlags) config(c *cobra.Command) (controller.Config, error) {
	cfg, err := controller.LoadConfig(f.configPath)
	if err != nil {
		return cfg, err
	}

	err = cfg.ApplyEnv()
	if err != nil {
		return cfg, err
	}

	flags := c.Flags()
	if flags.Changed("port") {
		cfg.SerialPort = f.port
	}
	if flags.Changed("baud") {
		cfg.BaudRate = f.baud
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if flags.Changed("twchart-addr") {
		cfg.TWChartAddr = f.twchartAddr
	}
	if flags.Changed("session") {
		cfg.SessionName = f.session
	}
	if flags.Changed("channels") {
		cfg.Channels = f.channels
	}
	return cfg, nil
}

var runFlags connFlags

func init() {
	RootCmd.AddCommand(runCmd)
	runFlags.register(runCmd)
}

// runInteractive drives the instrument from stdin until quit, EOF or interrupt
func runInteractive(cfg controller.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := controller.New(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	return c.Run(ctx, os.Stdin, os.Stdout)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Interactive control of the tensile tester",
	Run: func(c *cobra.Command, args []string) {
		ConfigureVerbosity()

		cfg, err := runFlags.config(c)
		if err != nil {
			log.Fatal(err)
		}

		if err := runInteractive(cfg); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal(err)
		}
	},
}
