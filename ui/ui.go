package ui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/tensile"
	"github.com/calvinmclean/tensile/controller"
)

const maxLogLines = 200

// TesterUI is the operator panel. It shows live force, displacement and state and sends
// commands through the controller's operator input
type TesterUI struct {
	app fyne.App

	mtx   sync.Mutex
	state tensile.RunState

	runTimer     *timer
	stateLabel   *widget.Label
	forceLabel   *widget.Label
	dispLabel    *widget.Label
	actionButton *widget.Button
	logContent   *widget.Label
	logLines     []string
}

func NewTesterUI(app fyne.App) *TesterUI {
	return &TesterUI{
		app:        app,
		runTimer:   newTimer(),
		stateLabel: widget.NewLabel(tensile.StateIdle.String()),
		forceLabel: widget.NewLabel(formatForce(0)),
		dispLabel:  widget.NewLabel(formatDisplacement(0)),
		logContent: widget.NewLabel(""),
	}
}

// HandleRecord is a controller.Listener
func (ui *TesterUI) HandleRecord(r controller.Record) {
	switch r := r.(type) {
	case controller.DataRecord:
		force, disp := formatForce(r.ForceN()), formatDisplacement(r.DisplacementMM())
		fyne.Do(func() {
			ui.forceLabel.SetText(force)
			ui.dispLabel.SetText(disp)
		})
	case controller.StatusRecord:
		ui.setState(r.State)
	case controller.EventRecord:
		ui.mtx.Lock()
		current := ui.state
		ui.mtx.Unlock()

		next := nextState(current, r)
		if next == tensile.StateRunning && r.Name == tensile.EventStarted {
			ui.runTimer.Start(time.Now())
		}
		if current == tensile.StateRunning && next != tensile.StateRunning {
			ui.runTimer.Stop(time.Now())
		}
		ui.setState(next)
		ui.appendLog(time.Now().Format(time.TimeOnly) + " " + r.String())
	}
}

func (ui *TesterUI) setState(s tensile.RunState) {
	ui.mtx.Lock()
	ui.state = s
	ui.mtx.Unlock()

	label, _ := action(s)
	fyne.Do(func() {
		ui.stateLabel.SetText(s.String())
		if ui.actionButton != nil {
			ui.actionButton.SetText(label)
		}
	})
}

func (ui *TesterUI) appendLog(line string) {
	fyne.Do(func() {
		ui.logLines = append(ui.logLines, line)
		if len(ui.logLines) > maxLogLines {
			ui.logLines = ui.logLines[len(ui.logLines)-maxLogLines:]
		}
		text := ""
		for _, l := range ui.logLines {
			text += l + "\n"
		}
		ui.logContent.SetText(text)
	})
}

func createSpeedEntry(c *controllerWrapper) *fyne.Container {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("mm/min")
	entry.OnSubmitted = func(s string) {
		speed, err := strconv.ParseFloat(s, 64)
		if err != nil || speed <= tensile.MinSpeed || speed >= tensile.MaxSpeed {
			entry.SetText("")
			return
		}
		c.SetSpeed(speed)
	}

	return container.NewGridWithColumns(3,
		widget.NewLabel("Speed"),
		entry,
		widget.NewButton("Set", func() {
			entry.OnSubmitted(entry.Text)
		}),
	)
}

func createLogAccordion(content *widget.Label) *widget.Accordion {
	logScroll := container.NewVScroll(content)
	logScroll.SetMinSize(fyne.NewSize(300, 120))

	return widget.NewAccordion(
		widget.NewAccordionItem("Events", logScroll),
	)
}

// Show opens the panel. Commands are written to w. The window quits the app when closed or when
// ctx is done
func (ui *TesterUI) Show(ctx context.Context, w io.Writer) {
	c := &controllerWrapper{writer: w}
	window := ui.app.NewWindow("Tensile Tester")

	done := make(chan struct{})
	ui.runTimer.Go(done)

	ui.actionButton = widget.NewButton("Start", func() {
		ui.mtx.Lock()
		_, cmd := action(ui.state)
		ui.mtx.Unlock()
		c.send(cmd)
	})
	ui.actionButton.Importance = widget.HighImportance

	direction := widget.NewRadioGroup([]string{"Pull", "Return"}, func(s string) {
		c.SetDirection(s == "Pull")
	})
	direction.Horizontal = true
	direction.SetSelected("Pull")

	content := container.NewVBox(
		container.NewHBox(
			container.NewPadded(ui.runTimer.text),
			layout.NewSpacer(),
			ui.stateLabel,
		),
		container.NewGridWithColumns(2, ui.forceLabel, ui.dispLabel),
		ui.actionButton,
		container.NewGridWithColumns(4,
			widget.NewButton("Up", c.JogUp),
			widget.NewButton("Down", c.JogDown),
			widget.NewButton("Tare", c.Tare),
			widget.NewButton("Save", c.Save),
		),
		createSpeedEntry(c),
		direction,
		createLogAccordion(ui.logContent),
	)

	var closeOnce sync.Once
	window.SetOnClosed(func() {
		closeOnce.Do(func() { close(done) })
		ui.app.Quit()
	})

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			window.Close()
		})
	}()

	window.SetContent(content)
	window.Resize(fyne.NewSize(360, 420))
	window.Show()
	c.Status()
}

func formatForce(n float64) string {
	return fmt.Sprintf("%.1f N", n)
}

func formatDisplacement(mm float64) string {
	return fmt.Sprintf("%.3f mm", mm)
}
