package web

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/metrics"
	"github.com/sweeney/tank-controller/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		TickMs:   10,
		Broker:   "tcp://192.168.1.200:1883",
		HTTPAddr: ":8080",
		Version:  "25.1.0",
	}
	tr := status.NewTracker(start, cfg)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := New(":0", tr, reg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func readings() status.Readings {
	return status.Readings{
		TankID: 7,
		State:  "SetKP",
		PH: status.LoopState{
			Reading:   8.012,
			Target:    8.1,
			Gains:     control.Gains{Kp: 100000},
			Automatic: true,
			Energized: true,
		},
		Temp:    status.LoopState{Reading: math.NaN(), Target: 20},
		Display: [2]string{"Set KP          ", "100000.0->      "},
	}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(readings())
	tr.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	assert.Equal(t, "SetKP", sj.Status.State)
	assert.Equal(t, 7, sj.Status.TankID)
	require.NotNil(t, sj.Status.PH.Reading)
	assert.Equal(t, 8.012, *sj.Status.PH.Reading)
	assert.Nil(t, sj.Status.Temp.Reading)
	assert.True(t, sj.Status.MQTT.Connected)
	assert.Equal(t, "tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	assert.Equal(t, "25.1.0", sj.Status.Config.Version)
}

func TestJSONUnknownStateBeforeFirstTick(t *testing.T) {
	ts, _, _ := newTestServer(t)
	_, body := get(t, ts.URL+"/index.json")

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	assert.Equal(t, "UNKNOWN", sj.Status.State)
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	_, body := get(t, ts.URL+"/index.json")
	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	require.NotNil(t, sj.Status.Network)
	assert.Equal(t, "192.168.1.42", sj.Status.Network.IP)
}

func TestHTMLEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(readings())
	tr.SetRelay(status.Relay{Pending: 3, Sent: 12345})

	for _, path := range []string{"/", "/index.html"} {
		resp, body := get(t, ts.URL+path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"), path)
		assert.Contains(t, body, "<title>Tank 7</title>")
		assert.Contains(t, body, `<td id="state">SetKP</td>`)
		assert.Contains(t, body, `<td id="ph-reading">8.012</td>`)
		assert.Contains(t, body, `<td id="temp-reading">--</td>`)
		assert.Contains(t, body, "100,000 / 0 / 0")
		assert.Contains(t, body, "12,345 sent")
		assert.Contains(t, body, "Set KP")
		assert.Contains(t, body, "never")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.Tick()
	m.Switched(control.LoopPH)

	resp, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "tank_ticks_total 1")
	assert.Contains(t, body, `tank_actuator_switches_total{loop="ph"} 1`)
}

func TestMetricsAbsentWithoutGatherer(t *testing.T) {
	srv := New(":0", status.NewTracker(time.Now(), status.Config{}), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, _ := get(t, ts.URL+"/nonexistent")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	var before status.StatusJSON
	_, body := get(t, ts.URL+"/index.json")
	require.NoError(t, json.Unmarshal([]byte(body), &before))
	assert.False(t, before.Status.Calibrating)

	r := readings()
	r.State = "PHCalibrationMid"
	r.Calibrating = true
	tr.Update(r)

	var after status.StatusJSON
	_, body = get(t, ts.URL+"/index.json")
	require.NoError(t, json.Unmarshal([]byte(body), &after))
	assert.True(t, after.Status.Calibrating)
	assert.Equal(t, "PHCalibrationMid", after.Status.State)
}
