package cmd

import (
	"context"
	"errors"

	"github.com/calvinmclean/tensile/controller"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	simFlags      connFlags
	simSlack      float64
	simStiffness  float64
	simBreakForce float64
)

func init() {
	RootCmd.AddCommand(simCmd)
	simFlags.register(simCmd)

	specimen := controller.DefaultConfig().Specimen
	simCmd.Flags().Float64Var(&simSlack, "slack", specimen.SlackMM, "crosshead travel before the specimen takes load [mm]")
	simCmd.Flags().Float64Var(&simStiffness, "stiffness", specimen.Stiffness, "specimen stiffness [N/mm]")
	simCmd.Flags().Float64Var(&simBreakForce, "break-force", specimen.BreakForce, "force where the specimen breaks [N]")
}

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Interactive control of a simulated tensile tester",
	Run: func(c *cobra.Command, args []string) {
		ConfigureVerbosity()

		cfg, err := simFlags.config(c)
		if err != nil {
			log.Fatal(err)
		}
		cfg.SerialPort = controller.SerialPortSim

		flags := c.Flags()
		if flags.Changed("slack") {
			cfg.Specimen.SlackMM = simSlack
		}
		if flags.Changed("stiffness") {
			cfg.Specimen.Stiffness = simStiffness
		}
		if flags.Changed("break-force") {
			cfg.Specimen.BreakForce = simBreakForce
		}

		if err := runInteractive(cfg); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal(err)
		}
	},
}
