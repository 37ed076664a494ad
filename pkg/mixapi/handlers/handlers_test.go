package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/txn2/pimixer/pkg/mixapi/types"
	"github.com/txn2/pimixer/pkg/mixbright"
	"github.com/txn2/pimixer/pkg/mixevents"
	"github.com/txn2/pimixer/pkg/mixloop"
	"github.com/txn2/pimixer/pkg/mixstate"
)

// mockMixer applies commands directly to a State
type mockMixer struct {
	state      *mixstate.State
	applyErr   error
	touchErr   error
	touches    int
	lines      []string
	bridgeUp   bool
	brightness mixbright.State
}

func newMockMixer() *mockMixer {
	return &mockMixer{state: mixstate.New(mixstate.DefaultSnapshot()), bridgeUp: true}
}

func (m *mockMixer) Channels() []mixstate.Channel { return m.state.Channels() }

func (m *mockMixer) Channel(id int) (mixstate.Channel, error) { return m.state.Channel(id) }

func (m *mockMixer) Snapshot() mixstate.Snapshot { return m.state.Snapshot() }

func (m *mockMixer) Apply(_ context.Context, cmd mixloop.Command) (mixstate.Channel, error) {
	if m.applyErr != nil {
		return mixstate.Channel{}, m.applyErr
	}
	var err error
	switch cmd.Op {
	case mixloop.OpSet:
		_, err = m.state.SetValue(cmd.ID, cmd.Value)
	case mixloop.OpAdjust:
		_, err = m.state.Adjust(cmd.ID, cmd.Value)
	case mixloop.OpMute:
		_, err = m.state.Mute(cmd.ID)
	case mixloop.OpUnmute:
		_, err = m.state.Unmute(cmd.ID)
	case mixloop.OpToggleMute:
		_, err = m.state.ToggleMute(cmd.ID)
	}
	if err != nil {
		return mixstate.Channel{}, err
	}
	return m.state.Channel(cmd.ID)
}

func (m *mockMixer) Touch() error {
	if m.touchErr != nil {
		return m.touchErr
	}
	m.touches++
	m.brightness = mixbright.Boosted
	return nil
}

func (m *mockMixer) Brightness() mixbright.State { return m.brightness }

func (m *mockMixer) Broadcasting() bool { return m.bridgeUp }

func (m *mockMixer) RecentLines(n int) []string {
	if n < len(m.lines) {
		return m.lines[len(m.lines)-n:]
	}
	return m.lines
}

type mockManagerInfo struct{}

func (mockManagerInfo) Version() string       { return "1.2.3" }
func (mockManagerInfo) Uptime() time.Duration { return time.Minute }
func (mockManagerInfo) StartTime() time.Time  { return time.Now().Add(-time.Minute) }
func (mockManagerInfo) Device() string        { return "/dev/ttyGS0" }
func (mockManagerInfo) ConfigPath() string    { return "/home/pi/.pimixer/mixer.conf" }
func (mockManagerInfo) TUIEnabled() bool      { return true }

type mockLogBuffer struct {
	entries []types.LogBufferEntry
}

func (m *mockLogBuffer) GetLast(n int) []types.LogBufferEntry {
	if n > len(m.entries) {
		n = len(m.entries)
	}
	return m.entries[:n]
}
func (m *mockLogBuffer) Count() int { return len(m.entries) }
func (m *mockLogBuffer) Clear()     { m.entries = nil }

func setupRouter(mixer types.MixerController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	h := NewChannelsHandler(mixer)
	r.GET("/channels", h.List)
	r.GET("/channels/:id", h.Get)
	r.PUT("/channels/:id", h.Set)
	r.POST("/channels/:id/mute", h.Mute)
	r.POST("/channels/:id/unmute", h.Unmute)
	r.POST("/channels/:id/toggle", h.Toggle)
	r.POST("/touch", h.Touch)

	d := NewDeviceHandler(mixer)
	r.GET("/device/lines", d.Lines)
	return r
}

func perform(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, into interface{}) types.Response {
	t.Helper()
	var raw struct {
		Success bool             `json:"success"`
		Data    json.RawMessage  `json:"data"`
		Error   *types.ErrorInfo `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to decode %q: %v", w.Body.String(), err)
	}
	if into != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, into); err != nil {
			t.Fatalf("Failed to decode data: %v", err)
		}
	}
	return types.Response{Success: raw.Success, Error: raw.Error}
}

func TestChannels_List(t *testing.T) {
	mixer := newMockMixer()
	r := setupRouter(mixer)

	w := perform(r, "GET", "/channels", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var data types.ChannelListResponse
	resp := decodeData(t, w, &data)
	if !resp.Success {
		t.Error("Expected success")
	}
	if len(data.Channels) != mixstate.NumChannels {
		t.Fatalf("Expected %d channels, got %d", mixstate.NumChannels, len(data.Channels))
	}
	if data.Channels[4].Label != "Master" || data.Channels[0].Percent != 100 {
		t.Errorf("Unexpected channel %+v", data.Channels[4])
	}
	if data.Frame != "1023|1023|1023|1023|1023" || data.Bridge != "up" || data.Brightness != "off" {
		t.Errorf("Unexpected list envelope %+v", data)
	}
}

func TestChannels_Get(t *testing.T) {
	r := setupRouter(newMockMixer())

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/channels/0", http.StatusOK},
		{"/channels/4", http.StatusOK},
		{"/channels/5", http.StatusNotFound},
		{"/channels/-1", http.StatusNotFound},
		{"/channels/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := perform(r, "GET", tt.path, "")
		if w.Code != tt.wantStatus {
			t.Errorf("GET %s: expected %d, got %d", tt.path, tt.wantStatus, w.Code)
		}
	}
}

func TestChannels_Set(t *testing.T) {
	mixer := newMockMixer()
	r := setupRouter(mixer)

	w := perform(r, "PUT", "/channels/2", `{"value": 500}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var ch types.ChannelResponse
	decodeData(t, w, &ch)
	if ch.ID != 2 || ch.Value != 500 {
		t.Errorf("Unexpected response %+v", ch)
	}
	if mixer.Snapshot() != (mixstate.Snapshot{1023, 1023, 500, 1023, 1023}) {
		t.Errorf("Unexpected state %v", mixer.Snapshot())
	}

	w = perform(r, "PUT", "/channels/2", `{"value": 5000}`)
	decodeData(t, w, &ch)
	if ch.Value != mixstate.MaxValue {
		t.Errorf("Expected clamp to %d, got %d", mixstate.MaxValue, ch.Value)
	}

	for _, body := range []string{`{}`, `{"value": "loud"}`, `not json`} {
		w = perform(r, "PUT", "/channels/2", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestChannels_MuteUnmuteToggle(t *testing.T) {
	mixer := newMockMixer()
	r := setupRouter(mixer)
	perform(r, "PUT", "/channels/1", `{"value": 321}`)

	var ch types.ChannelResponse
	decodeData(t, perform(r, "POST", "/channels/1/mute", ""), &ch)
	if !ch.Muted || ch.Value != 0 || ch.PreMuteValue != 321 {
		t.Errorf("Expected muted with pre-mute 321, got %+v", ch)
	}

	decodeData(t, perform(r, "POST", "/channels/1/unmute", ""), &ch)
	if ch.Muted || ch.Value != 321 {
		t.Errorf("Expected 321 restored, got %+v", ch)
	}

	decodeData(t, perform(r, "POST", "/channels/1/toggle", ""), &ch)
	if !ch.Muted {
		t.Error("Expected toggle to mute")
	}
	decodeData(t, perform(r, "POST", "/channels/1/toggle", ""), &ch)
	if ch.Muted || ch.Value != 321 {
		t.Errorf("Expected toggle to restore 321, got %+v", ch)
	}
}

func TestChannels_LoopErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{mixloop.ErrBusy, http.StatusTooManyRequests, "BUSY"},
		{mixloop.ErrStopped, http.StatusServiceUnavailable, "STOPPED"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
	}
	for _, tt := range tests {
		mixer := newMockMixer()
		mixer.applyErr = tt.err
		mixer.touchErr = tt.err
		r := setupRouter(mixer)

		for _, w := range []*httptest.ResponseRecorder{
			perform(r, "POST", "/channels/0/mute", ""),
			perform(r, "POST", "/touch", ""),
		} {
			if w.Code != tt.wantStatus {
				t.Errorf("%v: expected %d, got %d", tt.err, tt.wantStatus, w.Code)
			}
			if resp := decodeData(t, w, nil); resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("%v: expected code %s, got %+v", tt.err, tt.wantCode, resp.Error)
			}
		}
	}
}

func TestTouch(t *testing.T) {
	mixer := newMockMixer()
	r := setupRouter(mixer)

	w := perform(r, "POST", "/touch", "")
	if w.Code != http.StatusOK || mixer.touches != 1 {
		t.Fatalf("Expected touch accepted, got %d touches=%d", w.Code, mixer.touches)
	}
	var tr types.TouchResponse
	decodeData(t, w, &tr)
	if !tr.Accepted || tr.Brightness != "boosted" {
		t.Errorf("Unexpected touch response %+v", tr)
	}
}

func TestDevice_Lines(t *testing.T) {
	mixer := newMockMixer()
	mixer.lines = []string{"boot", "ready", "knob 2"}
	r := setupRouter(mixer)

	var data types.DeviceLinesResponse
	decodeData(t, perform(r, "GET", "/device/lines?count=2", ""), &data)
	if len(data.Lines) != 2 || data.Lines[1] != "knob 2" {
		t.Errorf("Unexpected lines %v", data.Lines)
	}

	decodeData(t, perform(r, "GET", "/device/lines?count=bogus", ""), &data)
	if len(data.Lines) != 3 {
		t.Errorf("Expected default count to return all 3, got %v", data.Lines)
	}
}

func TestNilMixer(t *testing.T) {
	r := setupRouter(nil)
	for _, path := range []string{"/channels", "/channels/1", "/device/lines"} {
		if w := perform(r, "GET", path, ""); w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s: expected 503, got %d", path, w.Code)
		}
	}
	if w := perform(r, "POST", "/touch", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for touch, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mixer := newMockMixer()
	h := NewHealthHandler("1.2.3", time.Now(), mixer, func() types.ManagerInfo { return mockManagerInfo{} })
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/info", h.Info)

	var health types.HealthResponse
	w := perform(r, "GET", "/health", "")
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || health.Version != "1.2.3" {
		t.Errorf("Unexpected health %+v", health)
	}

	mixer.bridgeUp = false
	w = perform(r, "GET", "/health", "")
	_ = json.Unmarshal(w.Body.Bytes(), &health)
	if health.Status != "degraded" {
		t.Errorf("Expected degraded without a bridge, got %s", health.Status)
	}

	var info types.InfoResponse
	decodeData(t, perform(r, "GET", "/info", ""), &info)
	if info.Device != "/dev/ttyGS0" || !info.TUIEnabled || info.GoVersion == "" {
		t.Errorf("Unexpected info %+v", info)
	}
}

func TestLogs_Recent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := &mockLogBuffer{entries: []types.LogBufferEntry{
		{Level: "info", Message: "Serial port /dev/ttyGS0 opened at 9600 bps"},
		{Level: "warning", Message: "Config write failed"},
	}}
	h := NewLogsHandler(func() types.LogBufferProvider { return buf })
	r := gin.New()
	r.GET("/logs", h.Recent)

	var data types.LogsResponse
	decodeData(t, perform(r, "GET", "/logs?count=1", ""), &data)
	if len(data.Logs) != 1 || !strings.Contains(data.Logs[0].Message, "opened") {
		t.Errorf("Unexpected logs %+v", data.Logs)
	}

	empty := NewLogsHandler(func() types.LogBufferProvider { return nil })
	r.GET("/nologs", empty.Recent)
	if w := perform(r, "GET", "/nologs", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestParseEventType(t *testing.T) {
	for _, name := range []string{"ChannelChanged", "DeviceLine", "ShutdownStarted"} {
		et, known := parseEventType(name)
		if !known || et.String() != name {
			t.Errorf("Expected %s to parse, got %v %v", name, et, known)
		}
	}
	if _, known := parseEventType("PodAdded"); known {
		t.Error("Expected unknown event type")
	}
}

func TestMapEventToResponse(t *testing.T) {
	resp := mapEventToResponse(mixevents.NewChannelEvent(mixevents.ChannelChanged,
		mixstate.Channel{ID: 2, Label: "App3", Value: 500}))
	ch, ok := resp.Data["channel"].(types.ChannelResponse)
	if resp.Type != "ChannelChanged" || !ok || ch.Value != 500 {
		t.Errorf("Unexpected response %+v", resp)
	}

	resp = mapEventToResponse(mixevents.NewDeviceLineEvent("hello"))
	if resp.Data["line"] != "hello" {
		t.Errorf("Unexpected response %+v", resp)
	}
}
