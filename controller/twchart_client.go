package controller

import (
	"context"
	"time"

	"github.com/calvinmclean/tensile/twchart"
)

// twchartClient records a run as a chart session: stages for motion changes and events for faults
type twchartClient interface {
	CreateSession(ctx context.Context, name string, channels twchart.Channels) (string, error)
	SetStartTime(ctx context.Context, startTime time.Time) error
	AddEvent(ctx context.Context, note string, now time.Time) error
	AddStage(ctx context.Context, name string, now time.Time) error
	Done(ctx context.Context) error
}

var (
	_ twchartClient = (*twchart.Client)(nil)
	_ twchartClient = noopTWChartClient{}
)

// noopTWChartClient is used when no chart server is configured
type noopTWChartClient struct{}

func (noopTWChartClient) CreateSession(context.Context, string, twchart.Channels) (string, error) {
	return "", nil
}

func (noopTWChartClient) SetStartTime(context.Context, time.Time) error { return nil }

func (noopTWChartClient) AddEvent(context.Context, string, time.Time) error { return nil }

func (noopTWChartClient) AddStage(context.Context, string, time.Time) error { return nil }

func (noopTWChartClient) Done(context.Context) error { return nil }
