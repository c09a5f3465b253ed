package ui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/tensile/controller"
	"github.com/calvinmclean/tensile/twchart"
)

// ConfigWindow asks for the connection settings before the panel opens. Values are remembered in
// the app preferences
type ConfigWindow struct {
	app      fyne.App
	OnSubmit func()
}

func NewConfigWindow(app fyne.App) *ConfigWindow {
	return &ConfigWindow{
		app: app,
	}
}

func (cw *ConfigWindow) loadConfigFromPreferences(cfg *controller.Config) {
	prefs := cw.app.Preferences()
	cfg.SerialPort = prefs.StringWithFallback("serialPort", cfg.SerialPort)
	cfg.BaudRate = prefs.IntWithFallback("baudRate", cfg.BaudRate)
	cfg.TWChartAddr = prefs.StringWithFallback("twchartAddr", cfg.TWChartAddr)
	cfg.SessionName = prefs.StringWithFallback("sessionName", cfg.SessionName)
	cfg.Channels = prefs.StringWithFallback("channels", cfg.Channels)
	cfg.OutputDir = prefs.StringWithFallback("outputDir", cfg.OutputDir)
}

func (cw *ConfigWindow) saveConfigToPreferences(cfg *controller.Config) {
	prefs := cw.app.Preferences()
	prefs.SetString("serialPort", cfg.SerialPort)
	prefs.SetInt("baudRate", cfg.BaudRate)
	prefs.SetString("twchartAddr", cfg.TWChartAddr)
	prefs.SetString("sessionName", cfg.SessionName)
	prefs.SetString("channels", cfg.Channels)
	prefs.SetString("outputDir", cfg.OutputDir)
}

func validateConfig(cfg *controller.Config) error {
	if cfg.SerialPort == "" {
		return errors.New("select a serial port")
	}
	if cfg.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", cfg.BaudRate)
	}
	if cfg.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if cfg.Channels != "" {
		_, err := twchart.ParseChannels(cfg.Channels)
		if err != nil {
			return err
		}
	}
	return nil
}

func (cw *ConfigWindow) Show(cfg *controller.Config) {
	window := cw.app.NewWindow("Tensile Tester - Configuration")
	window.Resize(fyne.NewSize(400, 280))
	window.SetCloseIntercept(func() {
		// Treat window close as cancel
		window.Close()
		cw.app.Quit()
	})
	window.Show()

	cw.loadConfigFromPreferences(cfg)

	serialPorts, err := controller.GetSerialPorts()
	if err != nil && !errors.Is(err, controller.ErrNoUSBSerial) {
		ShowError(cw.app, window, fmt.Errorf("error getting serial ports: %w", err))
		return
	}

	serialPorts = append(serialPorts, controller.SerialPortSim)

	serialEntry := widget.NewSelect(serialPorts, nil)
	if cfg.SerialPort == "" {
		cfg.SerialPort = serialPorts[0]
	}
	serialEntry.Bind(binding.BindString(&cfg.SerialPort))

	baudRateEntry := widget.NewEntry()
	baudRateEntry.Bind(binding.IntToString(binding.BindInt(&cfg.BaudRate)))

	outputDirEntry := widget.NewEntry()
	outputDirEntry.Bind(binding.BindString(&cfg.OutputDir))

	twchartAddrEntry := widget.NewEntry()
	twchartAddrEntry.SetPlaceHolder("optional")
	twchartAddrEntry.Bind(binding.BindString(&cfg.TWChartAddr))

	sessionEntry := widget.NewEntry()
	sessionEntry.SetPlaceHolder("optional")
	sessionEntry.Bind(binding.BindString(&cfg.SessionName))

	channelsEntry := widget.NewEntry()
	channelsEntry.SetPlaceHolder(twchart.DefaultChannels)
	channelsEntry.Bind(binding.BindString(&cfg.Channels))

	errorLabel := widget.NewLabel("")

	submitButton := widget.NewButton("Submit", func() {
		cw.saveConfigToPreferences(cfg)
		cw.OnSubmit()
		window.Close()
	})
	submitButton.Disable()

	validateForm := func() {
		err := validateConfig(cfg)
		if err != nil {
			errorLabel.SetText(err.Error())
			submitButton.Disable()
			return
		}
		errorLabel.SetText("")
		submitButton.Enable()
	}

	serialEntry.OnChanged = func(_ string) { validateForm() }
	for _, e := range []*widget.Entry{baudRateEntry, outputDirEntry, twchartAddrEntry, sessionEntry, channelsEntry} {
		e.OnChanged = func(_ string) { validateForm() }
	}

	validateForm()

	form := container.NewVBox(
		widget.NewCard("Configuration", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Serial Port:"),
				serialEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Baud Rate:"),
				baudRateEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Output Directory:"),
				outputDirEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("TWChart Address:"),
				twchartAddrEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Session Name:"),
				sessionEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Channels:"),
				channelsEntry,
			),
		)),
		errorLabel,
		container.NewHBox(
			widget.NewButton("Cancel", func() {
				window.Close()
				cw.app.Quit()
			}),
			submitButton,
		),
	)

	window.SetContent(form)
}

// ShowError shows err and quits the app when it is dismissed
func ShowError(app fyne.App, window fyne.Window, err error) {
	d := dialog.NewError(err, window)
	d.SetOnClosed(func() {
		app.Quit()
	})
	d.Show()
}
