package twchart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/calvinmclean/babyapi"
	"github.com/calvinmclean/twchart"
)

// Channels names the telemetry series of a run. Each channel is stored as a chart probe
type Channels []twchart.Probe

// DefaultChannels is the channel layout used when none is configured
const DefaultChannels = "1=Force,2=Displacement"

// Client records a test run as a chart session: a stage per state change and an event per fault
type Client struct {
	client    *babyapi.Client[*session]
	sessionID string
}

type session struct {
	// include NilResource so we don't implement Render/Bind which are not needed
	*babyapi.NilResource
	twchart.Session
}

func (s session) GetID() string {
	return s.Session.GetID()
}

func NewClient(addr string) *Client {
	client := babyapi.NewClient[*session](addr, "/sessions")
	return &Client{client: client}
}

// CreateSession starts a new session for the run and remembers its ID for later calls
func (c *Client) CreateSession(ctx context.Context, name string, channels Channels) (string, error) {
	resp, err := c.client.Post(ctx, &session{
		Session: twchart.Session{
			Name:   name,
			Date:   time.Now(),
			Probes: []twchart.Probe(channels),
		},
	})
	if err != nil {
		return "", fmt.Errorf("error creating session: %w", err)
	}

	c.sessionID = resp.Data.GetID()

	return c.sessionID, nil
}

// SessionID is empty until CreateSession succeeds
func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) SetStartTime(ctx context.Context, startTime time.Time) error {
	_, err := c.client.Patch(ctx, c.sessionID, &session{Session: twchart.Session{
		StartTime: startTime,
	}})
	return err
}

func (c *Client) AddEvent(ctx context.Context, note string, now time.Time) error {
	e := twchart.Event{Note: note, Time: now}
	return c.makeRequest(ctx, "/add-event", e)
}

func (c *Client) AddStage(ctx context.Context, name string, now time.Time) error {
	s := twchart.Stage{Name: name, Start: now}
	return c.makeRequest(ctx, "/add-stage", s)
}

func (c *Client) Done(ctx context.Context) error {
	return c.makeRequest(ctx, "/done", map[string]any{"time": time.Now()})
}

func (c *Client) makeRequest(ctx context.Context, action string, body any) error {
	if c.sessionID == "" {
		return fmt.Errorf("no session for %s", strings.TrimPrefix(action, "/"))
	}

	url, err := c.client.URL(c.sessionID)
	if err != nil {
		return fmt.Errorf("error building url: %w", err)
	}
	url += action

	var bodyReader io.Reader = http.NoBody
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding body: %w", err)
		}

		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := c.client.MakeGenericRequest(req, nil)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	if resp.Response.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status code: %d, response: %v", resp.Response.StatusCode, resp.Body)
	}

	return nil
}

// ParseChannels parses a string in the format "1=Force,2=Displacement,..." into Channels
func ParseChannels(input string) (Channels, error) {
	var channels Channels
	for entry := range strings.SplitSeq(input, ",") {
		posStr, name, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid channel entry: %q", entry)
		}
		posStr = strings.TrimSpace(posStr)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("missing channel name: %q", entry)
		}

		var pos twchart.ProbePosition
		_, err := fmt.Sscanf(posStr, "%d", &pos)
		if err != nil || pos <= twchart.ProbePositionNone {
			return nil, fmt.Errorf("invalid channel position: %q", posStr)
		}
		channels = append(channels, twchart.Probe{Name: name, Position: pos})
	}
	return channels, nil
}
