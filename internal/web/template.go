package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/sonar-sensor/internal/status"
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
	"stateOrUnknown": func(s string, updated bool) string {
		if !updated || s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Sonar Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Sonar Sensor</h1>

<h2>Measurement</h2>
<table>
{{if .Last.Seq}}<tr><th>Last echo</th><td id="ticks">{{.Last.Ticks}} ticks</td></tr>
<tr><th>Sequence</th><td>{{.Last.Seq}}</td></tr>
<tr><th>Taken</th><td>{{.Last.At.UTC.Format "2006-01-02T15:04:05.000Z"}}</td></tr>
{{else}}<tr><th>Last echo</th><td id="ticks">none yet</td></tr>{{end}}
</table>

<h2>Cycle</h2>
<table>
<tr><th>State</th><td id="state">{{stateOrUnknown (printf "%s" .Sonar.State) .Updated}}</td></tr>
<tr><th>Counter</th><td>{{.Sonar.Counter}}</td></tr>
<tr><th>Armed edge</th><td>{{.Sonar.Armed}}</td></tr>
<tr><th>Trigger</th><td>{{if .Sonar.TriggerHigh}}HIGH{{else}}LOW{{end}}</td></tr>
</table>

<h2>Cycle Counts</h2>
<table>
<tr><th>Completed</th><td>{{.Sonar.Counts.Completed}}</td></tr>
<tr><th>Wait timeouts</th><td>{{.Sonar.Counts.WaitTimeouts}}</td></tr>
<tr><th>Measure timeouts</th><td>{{.Sonar.Counts.MeasureTimeouts}}</td></tr>
<tr><th>Re-armed</th><td>{{.Sonar.Counts.Rearms}}</td></tr>
<tr><th>Trigger errors</th><td>{{.Sonar.TriggerErrors}}</td></tr>
<tr><th>Missed ticks</th><td>{{.Sonar.MissedTicks}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickUs}}us</td></tr>
<tr><th>Pins</th><td>trigger {{.Config.PinTrigger}}, echo {{.Config.PinEcho}}</td></tr>
<tr><th>Report</th><td>{{.Config.ReportMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
{{if .Config.SerialPort}}<tr><th>Serial</th><td>{{.Config.SerialPort}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a> | <a href="/measurement">measurement</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
