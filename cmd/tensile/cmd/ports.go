package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/calvinmclean/tensile/controller"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(portsCmd)
}

func portsRun() error {
	ports, err := controller.GetSerialPorts()
	if errors.Is(err, controller.ErrNoUSBSerial) {
		fmt.Println("No USB serial ports found. Use \"tensile sim\" to try the simulator.")
		return nil
	}
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Port")
	for i, p := range ports {
		err := table.Append([]string{fmt.Sprint(i + 1), p})
		if err != nil {
			return err
		}
	}
	return table.Render()
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List USB serial ports that may be a tensile tester",
	Run: func(c *cobra.Command, args []string) {
		ConfigureVerbosity()

		if err := portsRun(); err != nil {
			log.Fatal(err)
		}
	},
}
