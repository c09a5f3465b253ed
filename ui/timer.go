package ui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// timer shows the elapsed time of the current run. It freezes when the run stops
type timer struct {
	mtx       sync.Mutex
	startTime time.Time
	stopTime  time.Time
	running   bool
	text      *canvas.Text
}

func newTimer() *timer {
	return &timer{text: canvas.NewText(formatElapsed(0), nil)}
}

func (t *timer) Start(now time.Time) {
	t.mtx.Lock()
	t.startTime = now
	t.running = true
	t.mtx.Unlock()
}

func (t *timer) Stop(now time.Time) {
	t.mtx.Lock()
	if t.running {
		t.stopTime = now
		t.running = false
	}
	t.mtx.Unlock()
}

// Elapsed is the run time so far, or the final run time after Stop
func (t *timer) Elapsed(now time.Time) time.Duration {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	switch {
	case t.startTime.IsZero():
		return 0
	case t.running:
		return now.Sub(t.startTime)
	default:
		return t.stopTime.Sub(t.startTime)
	}
}

// Go refreshes the text until done is closed
func (t *timer) Go(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				text := formatElapsed(t.Elapsed(now))
				fyne.Do(func() {
					t.text.Text = text
					t.text.Refresh()
				})
			}
		}
	}()
}

func formatElapsed(elapsed time.Duration) string {
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60
	tenths := int(elapsed.Milliseconds()) % 1000 / 100
	return fmt.Sprintf("%02d:%02d.%d", minutes, seconds, tenths)
}
