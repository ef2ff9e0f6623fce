package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"
)

const alertMailTemplate = `
<h2>Air quality alert</h2>
<p>The following pollutant levels exceeded your thresholds at {{.Timestamp}}:</p>
<ul>
{{range .Exceeded}}  <li><strong>{{.Name}}</strong>: {{.Value}} (threshold {{.Threshold}})</li>
{{end}}</ul>
<h3>Full reading</h3>
<table>
  <tr><td>Temperature</td><td>{{.Reading.Temperature}}</td></tr>
  <tr><td>Humidity</td><td>{{.Reading.Humidity}}</td></tr>
  <tr><td>PM2.5</td><td>{{.Reading.PM25}}</td></tr>
  <tr><td>PM10</td><td>{{.Reading.PM10}}</td></tr>
  <tr><td>CO2</td><td>{{.Reading.CO2}}</td></tr>
  <tr><td>VOC</td><td>{{.Reading.VOC}}</td></tr>
</table>
`

// Mailer delivers notification intents as HTML email over SMTP. One message
// per intent, covering every exceeded pollutant.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	tmpl   *template.Template
}

// NewMailer creates an SMTP-backed notifier.
func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		tmpl:   template.Must(template.New("alert").Parse(alertMailTemplate)),
	}
}

type exceededRow struct {
	Name      string
	Value     float64
	Threshold float64
}

// Notify renders and sends one alert email. The context deadline is advisory
// only; gomail does not support cancellation mid-dial.
func (m *Mailer) Notify(ctx context.Context, intent *Intent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := make([]exceededRow, 0, len(intent.Exceeded))
	for _, name := range intent.Exceeded {
		rows = append(rows, exceededRow{
			Name:      strings.ToUpper(name),
			Value:     pollutantValue(intent, name),
			Threshold: intent.Thresholds[name],
		})
	}

	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, map[string]any{
		"Timestamp": intent.Reading.Timestamp.Format("2006-01-02 15:04:05"),
		"Exceeded":  rows,
		"Reading":   intent.Reading,
	}); err != nil {
		return fmt.Errorf("render alert mail: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", intent.Email)
	msg.SetHeader("Subject", "Air Quality Alert")
	msg.SetBody("text/html", body.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	return nil
}

func pollutantValue(intent *Intent, name string) float64 {
	switch name {
	case "co2":
		return intent.Reading.CO2
	case "pm25":
		return intent.Reading.PM25
	case "pm10":
		return intent.Reading.PM10
	case "voc":
		return intent.Reading.VOC
	}
	return 0
}
