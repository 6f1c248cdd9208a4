package smtp

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

var funcs = map[string]any{
	"join": strings.Join,
}

var htmlTemplate = htmltemplate.Must(htmltemplate.New("alert.html").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2 style="color: #c0392b;">Scheduled power outage near you</h2>
  <p>UEDCL has published the following planned interruptions within range of your saved location:</p>
  <table cellpadding="6" cellspacing="0" border="1" style="border-collapse: collapse;">
    <tr style="background: #f4f4f4;">
      <th align="left">Area</th>
      <th align="left">Affected places</th>
      <th align="right">Distance</th>
      <th align="left">Date</th>
      <th align="left">Time</th>
    </tr>
{{- range .}}
    <tr>
      <td><strong>{{.Area}}</strong></td>
      <td>{{join .SubAreas ", "}}</td>
      <td align="right">{{printf "%.2f" .DistanceKm}} km</td>
      <td>{{.Date}}</td>
      <td>{{.Time}}</td>
    </tr>
{{- end}}
  </table>
  <p>Please plan ahead and charge your devices.</p>
</body>
</html>
`))

var textTemplate = texttemplate.Must(texttemplate.New("alert.txt").Funcs(funcs).Parse(`Scheduled power outage near you

UEDCL has published the following planned interruptions within range of your saved location:
{{range .}}
- {{.Area}}: {{printf "%.2f" .DistanceKm}} km away, {{.Date}} at {{.Time}}{{if .SubAreas}} ({{join .SubAreas ", "}}){{end}}
{{- end}}

Please plan ahead and charge your devices.
`))
