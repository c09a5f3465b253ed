package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/calvinmclean/tensile/controller"
	"github.com/calvinmclean/tensile/ui"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var uiFlags connFlags

func init() {
	RootCmd.AddCommand(uiCmd)
	uiFlags.register(uiCmd)
}

// runUI asks for the connection settings, then connects and opens the operator panel. Commands
// typed on stdin are forwarded as well
func runUI(cfg controller.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application := app.NewWithID("io.github.calvinmclean.tensile")
	configWindow := ui.NewConfigWindow(application)
	configWindow.OnSubmit = func() {
		go connectUI(ctx, cancel, application, cfg)
	}

	configWindow.Show(&cfg)
	application.Run()
}

func connectUI(ctx context.Context, cancel context.CancelFunc, application fyne.App, cfg controller.Config) {
	c, err := controller.New(cfg)
	if err != nil {
		fyne.Do(func() {
			ui.ShowError(application, application.NewWindow("Tensile Tester"), err)
		})
		return
	}

	r, w := io.Pipe()

	// read from Stdin also
	go func() {
		_, _ = io.Copy(w, os.Stdin)
	}()

	testerUI := ui.NewTesterUI(application)
	c.OnRecord(testerUI.HandleRecord)

	go func() {
		defer c.Close()
		defer cancel()

		err := c.Run(ctx, r, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("controller stopped")
		}
	}()

	fyne.Do(func() {
		testerUI.Show(ctx, w)
	})
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Graphical operator panel",
	Run: func(c *cobra.Command, args []string) {
		ConfigureVerbosity()

		cfg, err := uiFlags.config(c)
		if err != nil {
			log.Fatal(err)
		}
		runUI(cfg)
	},
}
