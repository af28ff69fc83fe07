package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{in: "09:30", hour: 9, minute: 30},
		{in: "9:05", hour: 9, minute: 5},
		{in: "23:59:59", hour: 23, minute: 59},
		{in: "00:00", hour: 0, minute: 0},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "-1:30", wantErr: true},
		{in: "12:5", hour: 12, minute: 5},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			hour, minute, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, hour)
			assert.Equal(t, tt.minute, minute)
		})
	}
}

func TestScheduleRequestResolve(t *testing.T) {
	req := ScheduleRequest{
		Date: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		Time: "14:45",
	}

	at, err := req.Resolve()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 14, 14, 45, 0, 0, time.UTC), at)

	req.Time = "7pm"
	_, err = req.Resolve()
	assert.Error(t, err)
}

func TestAppointmentStatus(t *testing.T) {
	assert.True(t, AppointmentStatusNoShow.Valid())
	assert.False(t, AppointmentStatus("LOST").Valid())
	assert.True(t, AppointmentStatusCancelled.Terminal())
	assert.True(t, AppointmentStatusCompleted.Terminal())
	assert.False(t, AppointmentStatusConfirmed.Terminal())
	assert.Equal(t, "checked in", AppointmentStatusCheckedIn.Label())
}

func TestPurposesScanValue(t *testing.T) {
	in := Purposes{PurposeDentalCare, PurposeOthers}

	v, err := in.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"DENTAL_CARE","OTHERS"}`, v)

	var out Purposes
	require.NoError(t, out.Scan([]byte("{DENTAL_CARE,OTHERS}")))
	assert.Equal(t, in, out)
	assert.True(t, out.Contains(PurposeOthers))
	assert.Equal(t, []string{"dental care", "others"}, out.Labels())
}

func TestActorPrivileges(t *testing.T) {
	admin := Actor{Type: ActorTypeProvider, Role: ProviderRoleAdmin}
	nurse := Actor{Type: ActorTypeProvider, Role: ProviderRoleNurse}
	patient := Actor{Type: ActorTypePatient, Role: ProviderRoleAdmin}

	assert.True(t, admin.IsPrivileged())
	assert.False(t, nurse.IsPrivileged())
	assert.True(t, nurse.HasRole(ProviderRoleNurse, ProviderRoleAdmin))
	assert.False(t, patient.IsPrivileged())
}
