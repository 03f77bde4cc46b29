// Package hue talks to a Hue bridge over the v1 REST API.
//
// Reads go through huego. Writes are sent as raw JSON so that exactly the
// fields of a Command reach the bridge, and every write is reported to a
// Recorder.
package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Recorder receives the outcome of every write sent to a bridge.
type Recorder interface {
	RecordCommand(ctx context.Context, bridge, method, address string, err error)
}

// Client provides access to one bridge as one whitelisted user
type Client struct {
	address    string
	user       string
	baseURL    string
	bridge     *huego.Bridge
	httpClient *http.Client
	timeout    time.Duration
	recorder   Recorder
	limiter    *rate.Limiter
}

// NewClient creates a new Hue client. address is host[:port], optionally
// with an http:// scheme.
func NewClient(address, user string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	base := strings.TrimRight(address, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		address:    strings.TrimPrefix(strings.TrimPrefix(base, "http://"), "https://"),
		user:       user,
		baseURL:    base,
		bridge:     huego.New(base, user),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

// WithRecorder sets the ledger that writes are reported to.
func (c *Client) WithRecorder(r Recorder) *Client {
	c.recorder = r
	return c
}

// WithLimiter throttles writes. Clients of the same bridge should share one limiter.
func (c *Client) WithLimiter(l *rate.Limiter) *Client {
	c.limiter = l
	return c
}

// Address returns the bridge address
func (c *Client) Address() string {
	return c.address
}

// User returns the whitelisted user
func (c *Client) User() string {
	return c.user
}

// Close closes the client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Info returns the bridge configuration
func (c *Client) Info(ctx context.Context) (*BridgeInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	cfg, err := c.bridge.GetConfigContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bridge config: %w", err)
	}

	return &BridgeInfo{
		Name:       cfg.Name,
		BridgeID:   cfg.BridgeID,
		ModelID:    cfg.ModelID,
		SwVersion:  cfg.SwVersion,
		APIVersion: cfg.APIVersion,
		IPAddress:  cfg.IPAddress,
	}, nil
}

// Lights returns all lights ordered by ID
func (c *Client) Lights(ctx context.Context) ([]Light, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := c.bridge.GetLightsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get lights: %w", err)
	}

	lights := make([]Light, 0, len(raw))
	for _, l := range raw {
		lights = append(lights, lightFromHuego(l))
	}
	sort.Slice(lights, func(i, j int) bool { return lights[i].ID < lights[j].ID })

	return lights, nil
}

// Light returns a light by ID
func (c *Client) Light(ctx context.Context, id int) (*Light, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := c.bridge.GetLightContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get light %d: %w", id, err)
	}

	l := lightFromHuego(*raw)
	l.ID = id
	return &l, nil
}

// Groups returns all groups ordered by ID
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := c.bridge.GetGroupsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}

	groups := make([]Group, 0, len(raw))
	for _, g := range raw {
		groups = append(groups, groupFromHuego(g))
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })

	return groups, nil
}

// Group returns a group by ID
func (c *Client) Group(ctx context.Context, id int) (*Group, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := c.bridge.GetGroupContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}

	g := groupFromHuego(*raw)
	g.ID = id
	return &g, nil
}

// Schedules returns all schedules ordered by ID
func (c *Client) Schedules(ctx context.Context) ([]Schedule, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := c.bridge.GetSchedulesContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedules: %w", err)
	}

	schedules := make([]Schedule, 0, len(raw))
	for _, s := range raw {
		if s == nil {
			continue
		}
		schedules = append(schedules, scheduleFromHuego(*s))
	}
	sort.Slice(schedules, func(i, j int) bool { return schedules[i].ID < schedules[j].ID })

	return schedules, nil
}

// SetLightState sends a state command to a light
func (c *Client) SetLightState(ctx context.Context, id int, cmd Command) error {
	if cmd.IsEmpty() {
		return ErrEmptyCommand
	}
	_, err := c.write(ctx, http.MethodPut, fmt.Sprintf("lights/%d/state", id), cmd.Body())
	return err
}

// SetGroupAction sends an action to all lights of a group
func (c *Client) SetGroupAction(ctx context.Context, id int, cmd Command) error {
	if cmd.IsEmpty() {
		return ErrEmptyCommand
	}
	_, err := c.write(ctx, http.MethodPut, fmt.Sprintf("groups/%d/action", id), cmd.Body())
	return err
}

// RenameLight changes a light's name
func (c *Client) RenameLight(ctx context.Context, id int, name string) error {
	_, err := c.write(ctx, http.MethodPut, fmt.Sprintf("lights/%d", id), map[string]any{"name": name})
	return err
}

// DeleteLight removes a light from the bridge
func (c *Client) DeleteLight(ctx context.Context, id int) error {
	_, err := c.write(ctx, http.MethodDelete, fmt.Sprintf("lights/%d", id), nil)
	return err
}

// CreateGroup creates a group of lights and returns its ID
func (c *Client) CreateGroup(ctx context.Context, name string, lights []string) (int, error) {
	body := map[string]any{"lights": nonNil(lights)}
	if name != "" {
		body["name"] = name
	}

	result, err := c.write(ctx, http.MethodPost, "groups", body)
	if err != nil {
		return 0, err
	}
	return createdID(result)
}

// UpdateGroup changes a group's name and members. Empty name keeps the
// current one; nil lights keeps the current members.
func (c *Client) UpdateGroup(ctx context.Context, id int, name string, lights []string) error {
	body := make(map[string]any)
	if name != "" {
		body["name"] = name
	}
	if lights != nil {
		body["lights"] = lights
	}
	if len(body) == 0 {
		return ErrEmptyCommand
	}

	_, err := c.write(ctx, http.MethodPut, fmt.Sprintf("groups/%d", id), body)
	return err
}

// DeleteGroup removes a group
func (c *Client) DeleteGroup(ctx context.Context, id int) error {
	_, err := c.write(ctx, http.MethodDelete, fmt.Sprintf("groups/%d", id), nil)
	return err
}

// ScheduleRequest describes a one-shot schedule that applies a command to a
// light or group at a local time.
type ScheduleRequest struct {
	Name        string
	Description string
	At          time.Time
	Group       bool // target a group action instead of a light state
	TargetID    int
	Command     Command
}

// scheduleTimeLayout is the bridge's localtime format
const scheduleTimeLayout = "2006-01-02T15:04:05"

// scheduleBody encodes the set fields of req. A zero At or an empty
// command is left out.
func (c *Client) scheduleBody(req ScheduleRequest) map[string]any {
	body := make(map[string]any)
	if !req.Command.IsEmpty() {
		resource := fmt.Sprintf("/lights/%d/state", req.TargetID)
		if req.Group {
			resource = fmt.Sprintf("/groups/%d/action", req.TargetID)
		}
		body["command"] = map[string]any{
			"address": "/api/" + c.user + resource,
			"method":  http.MethodPut,
			"body":    req.Command.Body(),
		}
	}
	if !req.At.IsZero() {
		body["localtime"] = req.At.Format(scheduleTimeLayout)
	}
	if req.Name != "" {
		body["name"] = req.Name
	}
	if req.Description != "" {
		body["description"] = req.Description
	}
	return body
}

// CreateSchedule creates a schedule and returns its ID
func (c *Client) CreateSchedule(ctx context.Context, req ScheduleRequest) (int, error) {
	if req.Command.IsEmpty() {
		return 0, ErrEmptyCommand
	}
	if req.At.IsZero() {
		return 0, ErrNoScheduleTime
	}

	result, err := c.write(ctx, http.MethodPost, "schedules", c.scheduleBody(req))
	if err != nil {
		return 0, err
	}
	return createdID(result)
}

// UpdateSchedule changes an existing schedule. Only the set fields of req
// are sent, so a request without a command keeps the stored one.
func (c *Client) UpdateSchedule(ctx context.Context, id int, req ScheduleRequest) error {
	body := c.scheduleBody(req)
	if len(body) == 0 {
		return ErrEmptyCommand
	}
	_, err := c.write(ctx, http.MethodPut, fmt.Sprintf("schedules/%d", id), body)
	return err
}

// DeleteSchedule removes a schedule
func (c *Client) DeleteSchedule(ctx context.Context, id int) error {
	_, err := c.write(ctx, http.MethodDelete, fmt.Sprintf("schedules/%d", id), nil)
	return err
}

func (c *Client) v1URL(path string) string {
	return fmt.Sprintf("%s/api/%s/%s", c.baseURL, c.user, path)
}

// write sends a v1 write request, parses the envelope and reports the
// outcome to the recorder.
func (c *Client) write(ctx context.Context, method, path string, body any) (map[string]any, error) {
	var result map[string]any
	var err error
	if c.limiter != nil {
		err = c.limiter.Wait(ctx)
	}
	if err == nil {
		result, err = c.do(ctx, method, path, body)
	}

	if c.recorder != nil {
		c.recorder.RecordCommand(ctx, c.address, method, "/"+path, err)
	}

	if err != nil {
		log.Debug().Err(err).Str("bridge", c.address).Str("method", method).Str("path", path).Msg("Bridge write failed")
		return nil, err
	}

	log.Debug().Str("bridge", c.address).Str("method", method).Str("path", path).Msg("Bridge write")
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.v1URL(path), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return parseEnvelope(data)
}

func createdID(result map[string]any) (int, error) {
	raw, ok := result["id"]
	if !ok {
		return 0, fmt.Errorf("bridge response has no id")
	}
	s := fmt.Sprint(raw)
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bridge returned non-numeric id %q", s)
	}
	return id, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
