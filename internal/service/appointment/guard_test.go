package appointment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

var allStatuses = []model.AppointmentStatus{
	model.AppointmentStatusSubmitted,
	model.AppointmentStatusScheduled,
	model.AppointmentStatusCheckedIn,
	model.AppointmentStatusCancelled,
	model.AppointmentStatusRescheduled,
	model.AppointmentStatusAttending,
	model.AppointmentStatusAttended,
	model.AppointmentStatusNoShow,
	model.AppointmentStatusCompleted,
	model.AppointmentStatusConfirmed,
}

func admin() model.Actor {
	return model.Actor{ID: uuid.New(), Type: model.ActorTypeProvider, Role: model.ProviderRoleAdmin}
}

func doctor() model.Actor {
	return model.Actor{ID: uuid.New(), Type: model.ActorTypeProvider, Role: model.ProviderRoleDoctor}
}

func patient() model.Actor {
	return model.Actor{ID: uuid.New(), Type: model.ActorTypePatient}
}

func TestCanTransitionPrivileged(t *testing.T) {
	allowed := map[model.AppointmentStatus][]model.AppointmentStatus{
		model.AppointmentStatusSubmitted:   {model.AppointmentStatusScheduled, model.AppointmentStatusCancelled},
		model.AppointmentStatusScheduled:   {model.AppointmentStatusCheckedIn, model.AppointmentStatusNoShow, model.AppointmentStatusCancelled},
		model.AppointmentStatusRescheduled: {model.AppointmentStatusCheckedIn, model.AppointmentStatusNoShow, model.AppointmentStatusCancelled},
		model.AppointmentStatusNoShow:      {model.AppointmentStatusCheckedIn, model.AppointmentStatusNoShow, model.AppointmentStatusCancelled},
		model.AppointmentStatusCheckedIn:   {model.AppointmentStatusAttended, model.AppointmentStatusAttending, model.AppointmentStatusCancelled},
		model.AppointmentStatusAttending:   {model.AppointmentStatusAttended, model.AppointmentStatusAttending, model.AppointmentStatusCancelled},
		model.AppointmentStatusAttended:    {model.AppointmentStatusAttending, model.AppointmentStatusConfirmed},
		model.AppointmentStatusConfirmed:   {model.AppointmentStatusCompleted},
	}

	for _, actor := range []model.Actor{admin(), {ID: uuid.New(), Type: model.ActorTypeProvider, Role: model.ProviderRoleReceptionist}} {
		for _, from := range allStatuses {
			for _, to := range allStatuses {
				err := CanTransition(actor, from, to)
				want := false
				for _, s := range allowed[from] {
					if s == to {
						want = true
					}
				}
				if want {
					assert.NoError(t, err, "%s -> %s", from, to)
				} else {
					require.Error(t, err, "%s -> %s", from, to)
					assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err), "%s -> %s", from, to)
				}
			}
		}
	}
}

func TestCancelledIsAbsorbing(t *testing.T) {
	for _, to := range allStatuses {
		err := CanTransition(admin(), model.AppointmentStatusCancelled, to)
		require.Error(t, err)
		assert.Equal(t, "appointment already cancelled", err.Error())
	}
	assert.Error(t, CanCancel(patient(), model.AppointmentStatusCancelled))
	assert.Error(t, CanReschedule(model.AppointmentStatusCancelled))
	assert.Error(t, CanPatientUpdate(model.AppointmentStatusCancelled))
	assert.Error(t, CanAssign(model.AppointmentStatusCancelled))
	assert.Error(t, CanEdit(model.AppointmentStatusCancelled))
	assert.Error(t, CanFollowUp(model.AppointmentStatusCancelled))
}

func TestCanTransitionClinicalRoles(t *testing.T) {
	t.Run("role is checked before state", func(t *testing.T) {
		err := CanTransition(doctor(), model.AppointmentStatusSubmitted, model.AppointmentStatusScheduled)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

		err = CanTransition(doctor(), model.AppointmentStatusCancelled, model.AppointmentStatusCompleted)
		assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
	})

	t.Run("rescheduled is not reachable", func(t *testing.T) {
		err := CanTransition(doctor(), model.AppointmentStatusScheduled, model.AppointmentStatusRescheduled)
		assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
	})

	t.Run("attending and attended follow the table", func(t *testing.T) {
		nurse := model.Actor{ID: uuid.New(), Type: model.ActorTypeProvider, Role: model.ProviderRoleNurse}
		assert.NoError(t, CanTransition(nurse, model.AppointmentStatusCheckedIn, model.AppointmentStatusAttending))
		assert.NoError(t, CanTransition(doctor(), model.AppointmentStatusAttending, model.AppointmentStatusAttended))

		err := CanTransition(doctor(), model.AppointmentStatusScheduled, model.AppointmentStatusAttending)
		assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
	})
}

func TestCanTransitionRejectsPatientsAndUnknownStatus(t *testing.T) {
	err := CanTransition(patient(), model.AppointmentStatusSubmitted, model.AppointmentStatusCancelled)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

	err = CanTransition(admin(), model.AppointmentStatusSubmitted, "LOST")
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestPatientActions(t *testing.T) {
	tests := []struct {
		status     model.AppointmentStatus
		update     bool
		reschedule bool
		cancel     bool
	}{
		{model.AppointmentStatusSubmitted, true, false, true},
		{model.AppointmentStatusScheduled, false, true, true},
		{model.AppointmentStatusRescheduled, false, true, true},
		{model.AppointmentStatusNoShow, false, true, true},
		{model.AppointmentStatusCheckedIn, false, false, false},
		{model.AppointmentStatusAttending, false, false, false},
		{model.AppointmentStatusAttended, false, false, false},
		{model.AppointmentStatusConfirmed, false, false, false},
		{model.AppointmentStatusCompleted, false, false, false},
		{model.AppointmentStatusCancelled, false, false, false},
	}

	p := patient()
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.update, CanPatientUpdate(tt.status) == nil)
			assert.Equal(t, tt.reschedule, CanReschedule(tt.status) == nil)
			assert.Equal(t, tt.cancel, CanCancel(p, tt.status) == nil)
		})
	}

	err := CanPatientUpdate(model.AppointmentStatusScheduled)
	assert.Equal(t, "appointment already scheduled. reschedule or book a new appointment", err.Error())
}

func TestCanCancelProvider(t *testing.T) {
	assert.NoError(t, CanCancel(admin(), model.AppointmentStatusCheckedIn))
	assert.Error(t, CanCancel(admin(), model.AppointmentStatusAttended))

	err := CanCancel(doctor(), model.AppointmentStatusScheduled)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
}

func TestCanFollowUp(t *testing.T) {
	for _, s := range allStatuses {
		err := CanFollowUp(s)
		if s == model.AppointmentStatusCompleted || s == model.AppointmentStatusConfirmed {
			assert.NoError(t, err, s)
			continue
		}
		require.Error(t, err, s)
		assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
	}
	assert.Equal(t, "attended appointments can't have follow-up", CanFollowUp(model.AppointmentStatusAttended).Error())
}

func TestCanDelete(t *testing.T) {
	for _, s := range allStatuses {
		err := CanDelete(s)
		switch s {
		case model.AppointmentStatusSubmitted, model.AppointmentStatusScheduled, model.AppointmentStatusRescheduled:
			assert.NoError(t, err, s)
		default:
			assert.Error(t, err, s)
		}
	}
}
