package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

var appointmentScheduledTmpl = template.Must(template.New("appointment_scheduled").Parse(`<!DOCTYPE html>
<html>
<body>
  <p>Hello {{.PatientName}},</p>
  <p>Your appointment has been scheduled for <strong>{{.Date}}</strong> at <strong>{{.Time}}</strong>.</p>
  {{- if .Purposes}}
  <p>Purpose: {{.Purposes}}</p>
  {{- end}}
  <p>You can view the details at <a href="{{.Link}}">{{.Link}}</a>.</p>
  <p>{{.AppName}}</p>
</body>
</html>
`))

type AppointmentScheduledData struct {
	AppName     string
	OriginURL   string
	PatientName string
	ScheduledAt time.Time
	Time        string
	Purposes    []string
}

// RenderAppointmentScheduled returns the subject and HTML body of the mail
// a patient receives once the clinic schedules their appointment.
func RenderAppointmentScheduled(data AppointmentScheduledData) (string, string, error) {
	var buf bytes.Buffer
	err := appointmentScheduledTmpl.Execute(&buf, map[string]interface{}{
		"AppName":     data.AppName,
		"PatientName": data.PatientName,
		"Date":        data.ScheduledAt.Format("Monday, 02 January 2006"),
		"Time":        data.Time,
		"Purposes":    strings.Join(data.Purposes, ", "),
		"Link":        strings.TrimRight(data.OriginURL, "/") + "/appointments",
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to render appointment email: %w", err)
	}
	return fmt.Sprintf("%s: appointment scheduled", data.AppName), buf.String(), nil
}
