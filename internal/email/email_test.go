package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSendBuildsMessage(t *testing.T) {
	d := &fakeDialer{}
	s := newSMTPSender(d, Config{From: "clinic@example.com", FromName: "Clinic"}, nil)

	require.NoError(t, s.Send(context.Background(), "jane@example.com", "Hello", "<p>hi</p>"))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"jane@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Hello"}, d.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{`"Clinic" <clinic@example.com>`}, d.sent[0].GetHeader("From"))
}

func TestSendTripsBreaker(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	s := newSMTPSender(d, Config{From: "clinic@example.com"}, nil)

	for i := 0; i < 3; i++ {
		err := s.Send(context.Background(), "jane@example.com", "s", "b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	}

	d.err = nil
	err := s.Send(context.Background(), "jane@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Empty(t, d.sent)
}

func TestSendHonoursCancelledContext(t *testing.T) {
	d := &fakeDialer{}
	s := newSMTPSender(d, Config{From: "clinic@example.com"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, "jane@example.com", "s", "b"), context.Canceled)
	assert.Empty(t, d.sent)
}

func TestRenderAppointmentScheduled(t *testing.T) {
	subject, body, err := RenderAppointmentScheduled(AppointmentScheduledData{
		AppName:     "Medivue",
		OriginURL:   "https://app.example.com/",
		PatientName: "Jane <Doe>",
		ScheduledAt: time.Date(2026, 11, 20, 14, 30, 0, 0, time.UTC),
		Time:        "14:30",
		Purposes:    []string{"dental care", "referral"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Medivue: appointment scheduled", subject)
	assert.Contains(t, body, "Friday, 20 November 2026")
	assert.Contains(t, body, "14:30")
	assert.Contains(t, body, "dental care, referral")
	assert.Contains(t, body, `href="https://app.example.com/appointments"`)
	assert.Contains(t, body, "Jane &lt;Doe&gt;")
}
