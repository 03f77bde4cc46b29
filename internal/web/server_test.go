package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dokzlo13/huepanel/internal/account"
	"github.com/dokzlo13/huepanel/internal/db"
	"github.com/dokzlo13/huepanel/internal/hue"
	"github.com/dokzlo13/huepanel/internal/ledger"
	"github.com/dokzlo13/huepanel/internal/session"
)

type lightCall struct {
	id  int
	cmd hue.Command
}

// fakeBridge implements Bridge in memory.
type fakeBridge struct {
	lights    []hue.Light
	groups    []hue.Group
	schedules []hue.Schedule
	readErr   error
	writeErr  error

	lightCalls []lightCall
	groupCalls []lightCall
	created    []hue.ScheduleRequest
	updated    map[int]hue.ScheduleRequest
	removed    []int
	renamed    map[int]string
	newGroups  [][]string
	deleted    []int
}

func (f *fakeBridge) Info(context.Context) (*hue.BridgeInfo, error) {
	return &hue.BridgeInfo{Name: "Philips hue", ModelID: "BSB002", APIVersion: "1.50.0"}, nil
}

func (f *fakeBridge) Lights(context.Context) ([]hue.Light, error) {
	return f.lights, f.readErr
}

func (f *fakeBridge) Light(_ context.Context, id int) (*hue.Light, error) {
	for _, l := range f.lights {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeBridge) Groups(context.Context) ([]hue.Group, error) { return f.groups, f.readErr }

func (f *fakeBridge) Group(_ context.Context, id int) (*hue.Group, error) {
	for _, g := range f.groups {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeBridge) Schedules(context.Context) ([]hue.Schedule, error) {
	return f.schedules, f.readErr
}

func (f *fakeBridge) SetLightState(_ context.Context, id int, cmd hue.Command) error {
	f.lightCalls = append(f.lightCalls, lightCall{id, cmd})
	return f.writeErr
}

func (f *fakeBridge) SetGroupAction(_ context.Context, id int, cmd hue.Command) error {
	f.groupCalls = append(f.groupCalls, lightCall{id, cmd})
	return f.writeErr
}

func (f *fakeBridge) RenameLight(_ context.Context, id int, name string) error {
	if f.renamed == nil {
		f.renamed = make(map[int]string)
	}
	f.renamed[id] = name
	return f.writeErr
}

func (f *fakeBridge) DeleteLight(_ context.Context, id int) error {
	f.removed = append(f.removed, id)
	return f.writeErr
}

func (f *fakeBridge) CreateGroup(_ context.Context, _ string, lights []string) (int, error) {
	f.newGroups = append(f.newGroups, lights)
	return 9, f.writeErr
}

func (f *fakeBridge) UpdateGroup(context.Context, int, string, []string) error { return f.writeErr }

func (f *fakeBridge) DeleteGroup(_ context.Context, id int) error {
	f.deleted = append(f.deleted, id)
	return f.writeErr
}

func (f *fakeBridge) CreateSchedule(_ context.Context, req hue.ScheduleRequest) (int, error) {
	f.created = append(f.created, req)
	return 1, f.writeErr
}

func (f *fakeBridge) UpdateSchedule(_ context.Context, id int, req hue.ScheduleRequest) error {
	if f.updated == nil {
		f.updated = make(map[int]hue.ScheduleRequest)
	}
	f.updated[id] = req
	return f.writeErr
}

func (f *fakeBridge) DeleteSchedule(_ context.Context, id int) error {
	f.deleted = append(f.deleted, id)
	return f.writeErr
}

type testEnv struct {
	server   *Server
	accounts *account.Store
	sessions *session.Manager
	ledger   *ledger.Ledger
	bridge   *fakeBridge
	dialed   []account.Bridge
	register func(ctx context.Context, address, deviceType string) (string, error)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	accounts, err := account.NewStore(t.TempDir(), bcrypt.MinCost)
	require.NoError(t, err)
	sessions, err := session.NewManager(session.NewMemoryStore(), "test-secret", time.Hour)
	require.NoError(t, err)
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	env := &testEnv{
		accounts: accounts,
		sessions: sessions,
		ledger:   ledger.New(database.DB),
		bridge: &fakeBridge{
			lights: []hue.Light{
				{ID: 1, Name: "Lamp", Type: "Extended color light", On: true, Bri: 200, ColorMode: "hs", Hue: 1000, Sat: 200, Reachable: true},
				{ID: 2, Name: "Desk", Type: "Dimmable light", Bri: 50, Reachable: true},
			},
			groups: []hue.Group{
				{ID: 1, Name: "Living", Type: "Room", Lights: []string{"1"}, AnyOn: true, ColorMode: "xy", Xy: []float32{0.4, 0.4}, Bri: 100},
			},
			schedules: []hue.Schedule{
				{ID: 3, Name: "Wake", LocalTime: "2026-01-02T07:00:00", Method: "PUT", Address: "/api/u/groups/1/action"},
			},
		},
	}
	env.register = func(context.Context, string, string) (string, error) { return "linked-user", nil }

	env.server = NewServer(Options{
		Accounts: accounts,
		Sessions: sessions,
		History:  env.ledger,
		Dial: func(b account.Bridge) Bridge {
			env.dialed = append(env.dialed, b)
			return env.bridge
		},
		Register: func(ctx context.Context, address, deviceType string) (string, error) {
			return env.register(ctx, address, deviceType)
		},
		Discover: func(context.Context) ([]hue.DiscoveredBridge, error) {
			return []hue.DiscoveredBridge{{ID: "001788fffe000000", Address: "10.0.0.2"}}, nil
		},
		DeviceType:        "huepanel#test",
		DefaultTransition: 4,
	})
	return env
}

// login creates an account with one bridge and returns its session cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	acct, err := e.accounts.Create("Ada", "Lovelace", "ada@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, acct.AddBridge(account.Bridge{Name: "Home", IP: "10.0.0.2", Port: 80, Username: "u"}))
	require.NoError(t, e.accounts.Save(acct))

	token, err := e.sessions.Issue(acct.Email)
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func (e *testEnv) do(t *testing.T, method, path string, form url.Values, cookie *http.Cookie) *http.Response {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := e.server.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func sessionFrom(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	paths := []string{"/bridges", "/bridges/0", "/bridges/0/lights/1", "/profile"}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, p, nil, nil)
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/login", resp.Header.Get("Location"))
		})
	}

	resp := env.do(t, http.MethodGet, "/api/color/preview?mode=rgb&r=1&g=2&b=3", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/bridges", nil, &http.Cookie{Name: sessionCookie, Value: "forged"})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/register", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/register", url.Values{
		"first_name": {"Ada"}, "last_name": {"Lovelace"}, "email": {"ada@example.com"},
		"password": {"secret1"}, "confirm": {"secret2"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Passwords do not match")

	resp = env.do(t, http.MethodPost, "/register", url.Values{
		"first_name": {"Ada"}, "last_name": {"Lovelace"}, "email": {"ada@example.com"},
		"password": {"secret1"}, "confirm": {"secret1"},
	}, nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/bridges", resp.Header.Get("Location"))
	require.NotNil(t, sessionFrom(resp))

	resp = env.do(t, http.MethodPost, "/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong12"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, sessionFrom(resp))

	resp = env.do(t, http.MethodPost, "/login", url.Values{"email": {"ada@example.com"}, "password": {"secret1"}}, nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	cookie := sessionFrom(resp)
	require.NotNil(t, cookie)

	resp = env.do(t, http.MethodGet, "/bridges", nil, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/logout", nil, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	// the token is revoked server side, not only cleared in the browser
	resp = env.do(t, http.MethodGet, "/bridges", nil, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/register", url.Values{
		"first_name": {"Ada"}, "last_name": {"Lovelace"}, "email": {"not-an-email"},
		"password": {"secret1"}, "confirm": {"secret1"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "not a valid email address")
}

func TestBridgePage(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, http.MethodGet, "/bridges/0", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Lamp")
	assert.Contains(t, body, "Desk")
	assert.Contains(t, body, "Living")
	assert.Contains(t, body, "Wake")
	assert.Equal(t, "10.0.0.2:80", env.dialed[len(env.dialed)-1].Address())

	resp = env.do(t, http.MethodGet, "/bridges/5", nil, cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBridgePageUnreachable(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.bridge.readErr = errors.New("connection refused")

	resp := env.do(t, http.MethodGet, "/bridges/0", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "connection refused")
}

func TestLightDialog(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, http.MethodGet, "/bridges/0/lights/1", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Lamp")
	assert.Contains(t, body, "current: hs")
}

func TestLightStateHS(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, http.MethodPost, "/bridges/0/lights/1/state", url.Values{
		"on": {"on"}, "mode": {"hs"}, "hue": {"43520"}, "sat": {"255"}, "bri": {"254"},
	}, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")

	require.Len(t, env.bridge.lightCalls, 1)
	call := env.bridge.lightCalls[0]
	assert.Equal(t, 1, call.id)
	require.NotNil(t, call.cmd.Hue)
	assert.Equal(t, uint16(43520), *call.cmd.Hue)
	assert.Equal(t, uint8(255), *call.cmd.Sat)
	assert.Nil(t, call.cmd.Xy)
	assert.True(t, *call.cmd.On)
}

func TestLightStateRGB(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, http.MethodPost, "/bridges/0/lights/1/state", url.Values{
		"mode": {"rgb"}, "r": {"255"}, "g": {"0"}, "b": {"0"},
	}, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	require.Len(t, env.bridge.lightCalls, 1)
	cmd := env.bridge.lightCalls[0].cmd
	require.Len(t, cmd.Xy, 2)
	assert.InDelta(t, 0.735, cmd.Xy[0], 1e-3)
	assert.Nil(t, cmd.Hue)
	assert.Nil(t, cmd.Sat)
	assert.Nil(t, cmd.On)
}

func TestLightStateBrightnessWithColor(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		bri  uint8
	}{
		{"rgb", url.Values{"brightness": {"50"}, "mode": {"rgb"}, "r": {"255"}, "g": {"0"}, "b": {"0"}}, 50},
		{"xy", url.Values{"brightness": {"50"}, "mode": {"xy"}, "x": {"0.4"}, "y": {"0.4"}}, 50},
		{"hs", url.Values{"brightness": {"50"}, "mode": {"hs"}, "hue": {"43520"}, "sat": {"255"}}, 50},
		{"brightness over bri", url.Values{"brightness": {"50"}, "mode": {"xy"}, "x": {"0.4"}, "y": {"0.4"}, "bri": {"120"}}, 50},
		{"hs bri only", url.Values{"mode": {"hs"}, "hue": {"43520"}, "sat": {"255"}, "bri": {"120"}}, 120},
		{"xy no brightness", url.Values{"mode": {"xy"}, "x": {"0.4"}, "y": {"0.4"}}, 254},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			cookie := env.login(t)

			resp := env.do(t, http.MethodPost, "/bridges/0/lights/1/state", tt.form, cookie)
			assert.Equal(t, http.StatusFound, resp.StatusCode)

			require.Len(t, env.bridge.lightCalls, 1)
			cmd := env.bridge.lightCalls[0].cmd
			require.NotNil(t, cmd.Bri)
			assert.Equal(t, tt.bri, *cmd.Bri)
			assert.True(t, len(cmd.Xy) == 2 || cmd.Hue != nil)
		})
	}
}

func TestLightStateUnsetFields(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	// zero is a value, not "unset"
	resp := env.do(t, http.MethodPost, "/bridges/0/lights/2/state", url.Values{
		"brightness": {"0"}, "transition": {""}, "mode": {""},
	}, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	require.Len(t, env.bridge.lightCalls, 1)
	cmd := env.bridge.lightCalls[0].cmd
	require.NotNil(t, cmd.Bri)
	assert.Equal(t, uint8(0), *cmd.Bri)
	assert.Nil(t, cmd.On)
	assert.Nil(t, cmd.Xy)
	assert.Nil(t, cmd.Hue)
	assert.Nil(t, cmd.TransitionTime)
}

func TestLightStateRejected(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{"nothing", url.Values{}},
		{"bad mode", url.Values{"mode": {"cmyk"}}},
		{"missing channel", url.Values{"mode": {"rgb"}, "r": {"1"}, "g": {"2"}}},
		{"degenerate xy", url.Values{"mode": {"xy"}, "x": {"0.3"}, "y": {"0"}}},
		{"brightness range", url.Values{"brightness": {"300"}}},
		{"transition range", url.Values{"on": {"on"}, "transition": {"5000"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/bridges/0/lights/1/state", tt.form, cookie)
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Location"), "err=")
		})
	}
	assert.Empty(t, env.bridge.lightCalls)
}

func TestLightStateBridgeError(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.bridge.writeErr = &hue.APIError{Type: hue.ErrTypeDeviceOff, Address: "/lights/1/state/hue", Description: "parameter, hue, is not modifiable. Device is set to off."}

	resp := env.do(t, http.MethodPost, "/bridges/0/lights/1/state", url.Values{"mode": {"hs"}, "hue": {"1"}, "sat": {"1"}}, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Contains(t, loc.Query().Get("err"), "Device is set to off")
}

func TestGroupRoutes(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, http.MethodGet, "/bridges/0/groups/1", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Living")

	resp = env.do(t, http.MethodPost, "/bridges/0/groups/1/action", url.Values{"on": {"off"}}, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	require.Len(t, env.bridge.groupCalls, 1)
	assert.False(t, *env.bridge.groupCalls[0].cmd.On)

	resp = env.do(t, http.MethodPost, "/bridges/0/groups", url.Values{"name": {"Kitchen"}, "lights": {"1", "2"}}, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/bridges/0/groups/9?msg=Group+created", resp.Header.Get("Location"))
	require.Len(t, env.bridge.newGroups, 1)
	assert.Equal(t, []string{"1", "2"}, env.bridge.newGroups[0])

	resp = env.do(t, http.MethodPost, "/bridges/0/groups", url.Values{"name": {"Empty"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")

	resp = env.do(t, http.MethodPost, "/bridges/0/groups/1/delete", nil, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, []int{1}, env.bridge.deleted)
}

func TestRenameLight(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, http.MethodPost, "/bridges/0/lights/2/rename", url.Values{"name": {"Reading"}}, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "Reading", env.bridge.renamed[2])
}

func TestCreateSchedule(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	future := time.Now().Add(48 * time.Hour)
	resp := env.do(t, http.MethodPost, "/bridges/0/schedules", url.Values{
		"name":      {"Evening"},
		"date":      {future.Format("2006-01-02")},
		"time":      {"21:30"},
		"target":    {"group"},
		"target_id": {"1"},
		"on":        {"on"},
		"mode":      {"xy"},
		"x":         {"0.5"},
		"y":         {"0.4"},
	}, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")

	require.Len(t, env.bridge.created, 1)
	req := env.bridge.created[0]
	assert.True(t, req.Group)
	assert.Equal(t, 1, req.TargetID)
	assert.Equal(t, 21, req.At.Hour())
	assert.Equal(t, 30, req.At.Minute())
	assert.Len(t, req.Command.Xy, 2)

	resp = env.do(t, http.MethodPost, "/bridges/0/schedules", url.Values{
		"date": {"2000-01-01"}, "time": {"10:00"}, "target_id": {"1"}, "on": {"on"},
	}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")
	assert.Len(t, env.bridge.created, 1)

	resp = env.do(t, http.MethodPost, "/bridges/0/schedules/3/delete", nil, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, []int{3}, env.bridge.deleted)
}

func TestEditSchedule(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, http.MethodPost, "/bridges/0/schedules/3", url.Values{
		"name": {"Wake up"}, "description": {"weekdays"},
	}, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")

	req := env.bridge.updated[3]
	assert.Equal(t, "Wake up", req.Name)
	assert.Equal(t, "weekdays", req.Description)
	assert.True(t, req.At.IsZero())
	assert.True(t, req.Command.IsEmpty())

	future := time.Now().Add(48 * time.Hour)
	resp = env.do(t, http.MethodPost, "/bridges/0/schedules/3", url.Values{
		"name":       {"Wake up"},
		"date":       {future.Format("2006-01-02")},
		"time":       {"06:45"},
		"target":     {"light"},
		"target_id":  {"2"},
		"on":         {"on"},
		"brightness": {"120"},
	}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")

	req = env.bridge.updated[3]
	assert.Equal(t, 6, req.At.Hour())
	assert.False(t, req.Group)
	assert.Equal(t, 2, req.TargetID)
	require.NotNil(t, req.Command.Bri)
	assert.Equal(t, uint8(120), *req.Command.Bri)

	// a past time or an empty command is refused before reaching the bridge
	delete(env.bridge.updated, 3)
	resp = env.do(t, http.MethodPost, "/bridges/0/schedules/3", url.Values{"date": {"2000-01-01"}, "time": {"10:00"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")
	resp = env.do(t, http.MethodPost, "/bridges/0/schedules/3", url.Values{"target_id": {"2"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")
	assert.Empty(t, env.bridge.updated)
}

func TestDeleteLight(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, http.MethodPost, "/bridges/0/lights/2/delete", nil, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/bridges/0?msg=Light+removed", resp.Header.Get("Location"))
	assert.Equal(t, []int{2}, env.bridge.removed)

	env.bridge.writeErr = &hue.APIError{Type: hue.ErrTypeResourceNotFound, Address: "/lights/9", Description: "resource, /lights/9, not available"}
	resp = env.do(t, http.MethodPost, "/bridges/0/lights/9/delete", nil, cookie)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/bridges/0/lights/9", loc.Path)
	assert.Equal(t, "Not found on the bridge: /lights/9", loc.Query().Get("err"))
}

func TestAPIErrorMessages(t *testing.T) {
	assert.Contains(t, apiErrorMessage(&hue.APIError{Type: hue.ErrTypeUnauthorized}), "link it again")
	assert.Equal(t, "Invalid value: bad hue", apiErrorMessage(&hue.APIError{Type: hue.ErrTypeInvalidValue, Description: "bad hue"}))
	assert.Contains(t, apiErrorMessage(&hue.APIError{Type: hue.ErrTypeLinkButtonNotSet}), "link button")
	assert.Contains(t, apiErrorMessage(&hue.APIError{Type: hue.ErrTypeGroupTableFull}), "groups")
	assert.Contains(t, apiErrorMessage(&hue.APIError{Type: hue.ErrTypeScheduleTableFull}), "schedules")
	assert.Equal(t, "odd", apiErrorMessage(&hue.APIError{Type: 999, Description: "odd"}))
}

func TestAddBridge(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	env.bridge.readErr = errors.New("unauthorized user")
	resp := env.do(t, http.MethodPost, "/bridges", url.Values{"ip": {"10.0.0.9"}, "username": {"bad"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")

	env.bridge.readErr = nil
	resp = env.do(t, http.MethodPost, "/bridges", url.Values{"name": {"Office"}, "ip": {"10.0.0.9"}, "port": {"8080"}, "username": {"good"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")

	resp = env.do(t, http.MethodPost, "/bridges", url.Values{"ip": {"10.0.0.9"}, "port": {"8080"}, "username": {"good"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")

	acct, err := env.accounts.Load("ada@example.com")
	require.NoError(t, err)
	require.Len(t, acct.Bridges, 2)
	assert.Equal(t, "10.0.0.9:8080", acct.Bridges[1].Address())
	assert.Equal(t, "good", acct.Bridges[1].Username)
}

func TestLinkBridge(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	var gotDeviceType string
	env.register = func(_ context.Context, address, deviceType string) (string, error) {
		gotDeviceType = deviceType
		if address == "10.0.0.7:80" {
			return "", &hue.APIError{Type: hue.ErrTypeLinkButtonNotSet, Description: "link button not pressed"}
		}
		return "new-user", nil
	}

	resp := env.do(t, http.MethodPost, "/bridges/link", url.Values{"ip": {"10.0.0.7"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")

	resp = env.do(t, http.MethodPost, "/bridges/link", url.Values{"ip": {"10.0.0.8"}, "name": {"Garage"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")
	assert.Equal(t, "huepanel#test", gotDeviceType)

	acct, err := env.accounts.Load("ada@example.com")
	require.NoError(t, err)
	require.Len(t, acct.Bridges, 2)
	assert.Equal(t, "new-user", acct.Bridges[1].Username)
	assert.Equal(t, "Garage", acct.Bridges[1].Name)
}

func TestEditShareDeleteBridge(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	_, err := env.accounts.Create("Charles", "Babbage", "charles@example.com", "secret2")
	require.NoError(t, err)

	resp := env.do(t, http.MethodPost, "/bridges/0", url.Values{"name": {"Main"}, "location": {"Hall"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")

	resp = env.do(t, http.MethodPost, "/bridges/0/share", url.Values{"email": {"charles@example.com"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")

	resp = env.do(t, http.MethodPost, "/bridges/0/share", url.Values{"email": {"nobody@example.com"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")

	other, err := env.accounts.Load("charles@example.com")
	require.NoError(t, err)
	require.Len(t, other.Bridges, 1)
	assert.Equal(t, "Main", other.Bridges[0].Name)

	resp = env.do(t, http.MethodPost, "/bridges/0/delete", nil, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")

	acct, err := env.accounts.Load("ada@example.com")
	require.NoError(t, err)
	assert.Empty(t, acct.Bridges)
}

func TestEditBridgeAddress(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	require.NoError(t, func() error {
		_, err := env.accounts.Update("ada@example.com", func(a *account.Account) error {
			return a.AddBridge(account.Bridge{Name: "Office", IP: "10.0.0.3", Port: 80, Username: "w"})
		})
		return err
	}())

	form := url.Values{"name": {"Home"}, "ip": {"10.0.0.9"}, "port": {"8080"}, "username": {"v"}}

	// unreachable with the new credentials: nothing is saved
	env.bridge.readErr = errors.New("unauthorized user")
	resp := env.do(t, http.MethodPost, "/bridges/0", form, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")
	acct, err := env.accounts.Load("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:80", acct.Bridges[0].Address())

	env.bridge.readErr = nil
	env.dialed = nil
	resp = env.do(t, http.MethodPost, "/bridges/0", form, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")

	// the new address and username were checked before saving
	require.NotEmpty(t, env.dialed)
	checked := env.dialed[len(env.dialed)-1]
	assert.Equal(t, "10.0.0.9:8080", checked.Address())
	assert.Equal(t, "v", checked.Username)

	acct, err = env.accounts.Load("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9:8080", acct.Bridges[0].Address())
	assert.Equal(t, "v", acct.Bridges[0].Username)

	resp = env.do(t, http.MethodPost, "/bridges/0", url.Values{"name": {"Home"}, "ip": {"10.0.0.3"}, "port": {"80"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")
	resp = env.do(t, http.MethodPost, "/bridges/0", url.Values{"name": {"Home"}, "port": {"70000"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")

	acct, err = env.accounts.Load("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9:8080", acct.Bridges[0].Address())
}

func TestDiscover(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, http.MethodGet, "/bridges/discover", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Bridges []hue.DiscoveredBridge `json:"bridges"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Bridges, 1)
	assert.Equal(t, "10.0.0.2", body.Bridges[0].Address)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	ctx := ledger.WithActor(context.Background(), "ada@example.com")
	env.ledger.RecordCommand(ctx, "10.0.0.2:80", "PUT", "/lights/1/state", nil)
	env.ledger.RecordCommand(ctx, "10.0.0.2:80", "PUT", "/lights/2/state", errors.New("device is off"))
	env.ledger.RecordCommand(ctx, "10.0.0.3:80", "DELETE", "/groups/7", nil)

	resp := env.do(t, http.MethodGet, "/bridges/0/history", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "/lights/1/state")
	assert.Contains(t, body, "device is off")
	assert.NotContains(t, body, "/groups/7")
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, http.MethodGet, "/profile", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Lovelace")

	resp = env.do(t, http.MethodPost, "/profile", url.Values{"first_name": {"Augusta"}, "last_name": {"King"}}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")

	resp = env.do(t, http.MethodPost, "/profile/password", url.Values{
		"current_password": {"wrong12"}, "new_password": {"newpass1"}, "confirm": {"newpass1"},
	}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "err=")

	resp = env.do(t, http.MethodPost, "/profile/password", url.Values{
		"current_password": {"secret1"}, "new_password": {"newpass1"}, "confirm": {"newpass1"},
	}, cookie)
	assert.Contains(t, resp.Header.Get("Location"), "msg=")
	fresh := sessionFrom(resp)
	require.NotNil(t, fresh)

	// older sessions are revoked by a password change
	resp = env.do(t, http.MethodGet, "/profile", nil, cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/profile", nil, fresh)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	acct, err := env.accounts.Load("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Augusta King", acct.FullName())
}
