package web

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sweeney/tank-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"ago": func(t, now time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return humanize.RelTime(t, now, "ago", "from now")
	},
	"reading": func(v float64, prec int) string {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "--"
		}
		return fmt.Sprintf("%.*f", prec, v)
	},
	"gain":  func(v float64) string { return humanize.Commaf(v) },
	"count": func(v uint64) string { return humanize.Comma(int64(v)) },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Tank {{.TankID}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
pre.lcd { background: #1d3b1d; color: #9f9; padding: 0.5em 1em; display: inline-block; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.cal { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Tank {{.TankID}}</h1>

<pre class="lcd">{{index .Display 0}}
{{index .Display 1}}</pre>

<h2>Controller</h2>
<table>
<tr><th>Screen</th><td id="state">{{if .State}}{{.State}}{{else}}UNKNOWN{{end}}</td></tr>
<tr><th>Calibrating</th><td class="{{if .Calibrating}}cal{{else}}off{{end}}">{{if .Calibrating}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Loops</h2>
<table>
<tr><th></th><td>pH</td><td>Temperature</td></tr>
<tr><th>Reading</th><td id="ph-reading">{{reading .PH.Reading 3}}</td><td id="temp-reading">{{reading .Temp.Reading 2}}</td></tr>
<tr><th>Target</th><td>{{printf "%.3f" .PH.Target}}</td><td>{{printf "%.2f" .Temp.Target}}</td></tr>
<tr><th>Mode</th><td>{{if .PH.Automatic}}auto{{else}}manual{{end}}</td><td>{{if .Temp.Automatic}}auto{{else}}manual{{end}}</td></tr>
<tr><th>Actuator</th><td class="{{if .PH.Energized}}on{{else}}off{{end}}">{{if .PH.Energized}}ON{{else}}OFF{{end}}</td><td class="{{if .Temp.Energized}}on{{else}}off{{end}}">{{if .Temp.Energized}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>On-time</th><td>{{.PH.OnTime}}</td><td>{{.Temp.OnTime}}</td></tr>
<tr><th>Kp / Ki / Kd</th><td>{{gain .PH.Gains.Kp}} / {{gain .PH.Gains.Ki}} / {{gain .PH.Gains.Kd}}</td><td>{{gain .Temp.Gains.Kp}} / {{gain .Temp.Gains.Ki}} / {{gain .Temp.Gains.Kd}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Relay</th><td>{{.Relay.Pending}} pending, {{count .Relay.Sent}} sent, {{count .Relay.Dropped}} dropped</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Last log row</th><td>{{ago .LastLog .Now}}</td></tr>
<tr><th>Version</th><td>{{.Config.Version}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has an Uptime() method but the template needs a field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
