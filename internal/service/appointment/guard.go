package appointment

import (
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type statusSet map[model.AppointmentStatus]struct{}

func newStatusSet(statuses ...model.AppointmentStatus) statusSet {
	s := make(statusSet, len(statuses))
	for _, st := range statuses {
		s[st] = struct{}{}
	}
	return s
}

func (s statusSet) has(st model.AppointmentStatus) bool {
	_, ok := s[st]
	return ok
}

// transitions lists the statuses front-desk staff may move an appointment to.
var transitions = map[model.AppointmentStatus]statusSet{
	model.AppointmentStatusSubmitted: newStatusSet(
		model.AppointmentStatusScheduled,
		model.AppointmentStatusCancelled,
	),
	model.AppointmentStatusScheduled: newStatusSet(
		model.AppointmentStatusCheckedIn,
		model.AppointmentStatusNoShow,
		model.AppointmentStatusCancelled,
	),
	model.AppointmentStatusRescheduled: newStatusSet(
		model.AppointmentStatusCheckedIn,
		model.AppointmentStatusNoShow,
		model.AppointmentStatusCancelled,
	),
	model.AppointmentStatusNoShow: newStatusSet(
		model.AppointmentStatusCheckedIn,
		model.AppointmentStatusNoShow,
		model.AppointmentStatusCancelled,
	),
	model.AppointmentStatusCheckedIn: newStatusSet(
		model.AppointmentStatusAttended,
		model.AppointmentStatusAttending,
		model.AppointmentStatusCancelled,
	),
	model.AppointmentStatusAttending: newStatusSet(
		model.AppointmentStatusAttended,
		model.AppointmentStatusAttending,
		model.AppointmentStatusCancelled,
	),
	model.AppointmentStatusAttended: newStatusSet(
		model.AppointmentStatusAttending,
		model.AppointmentStatusConfirmed,
	),
	model.AppointmentStatusConfirmed: newStatusSet(
		model.AppointmentStatusCompleted,
	),
}

var (
	// clinicalTargets are the only statuses a doctor or nurse may set.
	clinicalTargets = newStatusSet(model.AppointmentStatusAttending, model.AppointmentStatusAttended)

	patientCancellable = newStatusSet(
		model.AppointmentStatusSubmitted,
		model.AppointmentStatusScheduled,
		model.AppointmentStatusRescheduled,
		model.AppointmentStatusNoShow,
	)
	reschedulable = newStatusSet(
		model.AppointmentStatusScheduled,
		model.AppointmentStatusRescheduled,
		model.AppointmentStatusNoShow,
	)
	followUpSources = newStatusSet(model.AppointmentStatusCompleted, model.AppointmentStatusConfirmed)
	deletable       = newStatusSet(
		model.AppointmentStatusSubmitted,
		model.AppointmentStatusScheduled,
		model.AppointmentStatusRescheduled,
	)
)

func alreadyIn(status model.AppointmentStatus) error {
	return apperrors.Validationf("appointment already %s", status.Label())
}

// CanTransition decides whether actor may move an appointment from current to
// next through a status update. Role is checked before state legality, so a
// doctor asking for SCHEDULED gets a permission error whatever the status.
func CanTransition(actor model.Actor, current, next model.AppointmentStatus) error {
	if !next.Valid() {
		return apperrors.Validationf("invalid status %q", next)
	}
	if !actor.IsProvider() {
		return apperrors.Forbidden("patients cannot change appointment status")
	}
	if !actor.IsPrivileged() && !clinicalTargets.has(next) {
		return apperrors.Forbidden("you can only set status to attending or attended")
	}
	if current.Terminal() {
		return alreadyIn(current)
	}
	if !transitions[current].has(next) {
		return apperrors.Validationf("cannot change status from %s to %s", current.Label(), next.Label())
	}
	return nil
}

// CanPatientUpdate allows field edits by the patient while the request is
// still waiting for the clinic.
func CanPatientUpdate(current model.AppointmentStatus) error {
	if current != model.AppointmentStatusSubmitted {
		return apperrors.Validationf("appointment already %s. reschedule or book a new appointment", current.Label())
	}
	return nil
}

func CanReschedule(current model.AppointmentStatus) error {
	if current == model.AppointmentStatusSubmitted {
		return apperrors.Validationf("appointment is not scheduled yet. update it instead")
	}
	if !reschedulable.has(current) {
		return alreadyIn(current)
	}
	return nil
}

func CanCancel(actor model.Actor, current model.AppointmentStatus) error {
	if actor.IsPatient() {
		if !patientCancellable.has(current) {
			return alreadyIn(current)
		}
		return nil
	}
	return CanTransition(actor, current, model.AppointmentStatusCancelled)
}

func CanFollowUp(current model.AppointmentStatus) error {
	if !followUpSources.has(current) {
		return apperrors.Validationf("%s appointments can't have follow-up", current.Label())
	}
	return nil
}

func CanDelete(current model.AppointmentStatus) error {
	if !deletable.has(current) {
		return apperrors.Validationf("%s appointments can't be deleted", current.Label())
	}
	return nil
}

func CanAssign(current model.AppointmentStatus) error {
	if current.Terminal() {
		return alreadyIn(current)
	}
	return nil
}

func CanEdit(current model.AppointmentStatus) error {
	if current.Terminal() {
		return alreadyIn(current)
	}
	return nil
}
