package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type AppointmentStatus string

const (
	AppointmentStatusSubmitted   AppointmentStatus = "SUBMITTED"
	AppointmentStatusScheduled   AppointmentStatus = "SCHEDULED"
	AppointmentStatusCheckedIn   AppointmentStatus = "CHECKED_IN"
	AppointmentStatusCancelled   AppointmentStatus = "CANCELLED"
	AppointmentStatusRescheduled AppointmentStatus = "RESCHEDULED"
	AppointmentStatusAttending   AppointmentStatus = "ATTENDING"
	AppointmentStatusAttended    AppointmentStatus = "ATTENDED"
	AppointmentStatusNoShow      AppointmentStatus = "NO_SHOW"
	AppointmentStatusCompleted   AppointmentStatus = "COMPLETED"
	AppointmentStatusConfirmed   AppointmentStatus = "CONFIRMED"
)

var appointmentStatuses = map[AppointmentStatus]struct{}{
	AppointmentStatusSubmitted:   {},
	AppointmentStatusScheduled:   {},
	AppointmentStatusCheckedIn:   {},
	AppointmentStatusCancelled:   {},
	AppointmentStatusRescheduled: {},
	AppointmentStatusAttending:   {},
	AppointmentStatusAttended:    {},
	AppointmentStatusNoShow:      {},
	AppointmentStatusCompleted:   {},
	AppointmentStatusConfirmed:   {},
}

func (s AppointmentStatus) Valid() bool {
	_, ok := appointmentStatuses[s]
	return ok
}

// Terminal reports whether no status change can leave s.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCancelled || s == AppointmentStatusCompleted
}

// Label is the lower-case form used in user facing messages.
func (s AppointmentStatus) Label() string {
	return strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
}

// Schedule is the date and time an appointment is booked for. Date holds the
// combined instant, Time keeps the wall clock value the caller sent.
type Schedule struct {
	Date        time.Time `db:"scheduled_at" json:"date"`
	Time        string    `db:"schedule_time" json:"time"`
	ChangeCount int       `db:"change_count" json:"change_count"`
}

type Appointment struct {
	Base
	PatientID             uuid.UUID         `db:"patient_id" json:"patient_id"`
	Schedule              `json:"schedule"`
	Purposes              Purposes          `db:"purposes" json:"purposes"`
	OtherPurpose          *string           `db:"other_purpose" json:"other_purpose,omitempty"`
	Status                AppointmentStatus `db:"status" json:"status"`
	HasInsurance          bool              `db:"has_insurance" json:"has_insurance"`
	IsFollowUpRequired    bool              `db:"is_follow_up_required" json:"is_follow_up_required"`
	FollowUpAppointmentID *uuid.UUID        `db:"follow_up_appointment_id" json:"follow_up_appointment_id,omitempty"`
	Version               int               `db:"version" json:"version"`

	ProviderIDs []uuid.UUID `db:"-" json:"provider_ids,omitempty"`
}

// AppointmentSummary is an appointment joined with its patient's name.
type AppointmentSummary struct {
	Appointment
	PatientFirstName string `db:"patient_first_name" json:"patient_first_name"`
	PatientLastName  string `db:"patient_last_name" json:"patient_last_name"`
}

type AppointmentProvider struct {
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	ProviderID    uuid.UUID `db:"provider_id" json:"provider_id"`
	AssignedAt    time.Time `db:"assigned_at" json:"assigned_at"`
}

type ScheduleRequest struct {
	Date time.Time `json:"date" binding:"required"`
	Time string    `json:"time" binding:"required,clock"`
}

// Resolve combines the requested calendar date with its time of day.
func (r ScheduleRequest) Resolve() (time.Time, error) {
	hour, minute, err := ParseClock(r.Time)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := r.Date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, r.Date.Location()), nil
}

type AppointmentRequest struct {
	Schedule     ScheduleRequest      `json:"schedule" binding:"required"`
	Purposes     []AppointmentPurpose `json:"purposes" binding:"required,min=1,dive,purpose"`
	OtherPurpose *string              `json:"other_purpose"`
	HasInsurance bool                 `json:"has_insurance"`
}

type ProviderAppointmentRequest struct {
	AppointmentRequest
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
}

type RescheduleRequest struct {
	Schedule ScheduleRequest `json:"schedule" binding:"required"`
}

type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required"`
}

type AssignProviderRequest struct {
	ProviderID uuid.UUID `json:"provider_id" binding:"required"`
}

type AppointmentFilter struct {
	Pagination
	PatientID  *uuid.UUID
	ProviderID *uuid.UUID
	Status     AppointmentStatus
	From       *time.Time
	To         *time.Time
	Search     string
}

// ParseClock parses an "HH:MM" or "HH:MM:SS" wall clock value.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	values := make([]int, len(parts))
	for i, part := range parts {
		if len(part) == 0 || len(part) > 2 || strings.Trim(part, "0123456789") != "" {
			return 0, 0, fmt.Errorf("invalid time %q", s)
		}
		values[i], _ = strconv.Atoi(part)
	}
	hour, minute = values[0], values[1]
	if hour > 23 || minute > 59 || (len(values) == 3 && values[2] > 59) {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	return hour, minute, nil
}

// Purposes is stored as a postgres text array.
type Purposes []AppointmentPurpose

func (p Purposes) Value() (driver.Value, error) {
	arr := make(pq.StringArray, len(p))
	for i, v := range p {
		arr[i] = string(v)
	}
	return arr.Value()
}

func (p *Purposes) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	out := make(Purposes, len(arr))
	for i, v := range arr {
		out[i] = AppointmentPurpose(v)
	}
	*p = out
	return nil
}

func (p Purposes) Contains(purpose AppointmentPurpose) bool {
	for _, v := range p {
		if v == purpose {
			return true
		}
	}
	return false
}

func (p Purposes) Labels() []string {
	out := make([]string, len(p))
	for i, v := range p {
		out[i] = v.Label()
	}
	return out
}
