package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type SoapNote struct {
	Base
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	CreatedByID   uuid.UUID  `db:"created_by_id" json:"created_by_id"`
	Subjective    Subjective `db:"subjective" json:"subjective"`
	Objective     Objective  `db:"objective" json:"objective"`
	Assessment    Assessment `db:"assessment" json:"assessment"`
	Plan          Plan       `db:"plan" json:"plan"`
}

type Subjective struct {
	Symptoms              []string             `json:"symptoms"`
	PurposesOfAppointment []AppointmentPurpose `json:"purposes_of_appointment" binding:"dive,purpose"`
	Others                string               `json:"others,omitempty"`
}

type Objective struct {
	PhysicalExamReport []string          `json:"physical_exam_report"`
	VitalsSummary      VitalMeasurements `json:"vitals_summary"`
	Labs               string            `json:"labs,omitempty"`
	Others             string            `json:"others,omitempty"`
}

type Assessment struct {
	Diagnosis    []string `json:"diagnosis"`
	Differential []string `json:"differential"`
}

type Prescription struct {
	MedicationName string `json:"medication_name" binding:"required"`
	Dosage         string `json:"dosage" binding:"required"`
	Frequency      string `json:"frequency" binding:"required"`
	Duration       string `json:"duration" binding:"required"`
	Instructions   string `json:"instructions,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
}

type Plan struct {
	Prescriptions        []Prescription `json:"prescriptions" binding:"dive"`
	TestRequests         []string       `json:"test_requests"`
	Recommendations      []string       `json:"recommendations"`
	HasReferral          bool           `json:"has_referral"`
	ReferredProviderName string         `json:"referred_provider_name,omitempty"`
	Others               string         `json:"others,omitempty"`
}

type SoapNoteRequest struct {
	AppointmentID uuid.UUID  `json:"appointment_id" binding:"required"`
	Subjective    Subjective `json:"subjective"`
	Objective     Objective  `json:"objective"`
	Assessment    Assessment `json:"assessment"`
	Plan          Plan       `json:"plan"`
}

func (s Subjective) Value() (driver.Value, error) { return jsonValue(s) }

func (s *Subjective) Scan(src interface{}) error { return jsonScan(src, s) }

func (o Objective) Value() (driver.Value, error) { return jsonValue(o) }

func (o *Objective) Scan(src interface{}) error { return jsonScan(src, o) }

func (a Assessment) Value() (driver.Value, error) { return jsonValue(a) }

func (a *Assessment) Scan(src interface{}) error { return jsonScan(src, a) }

func (p Plan) Value() (driver.Value, error) { return jsonValue(p) }

func (p *Plan) Scan(src interface{}) error { return jsonScan(src, p) }

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func jsonScan(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}
