package model

import (
	"github.com/google/uuid"
)

type Vital struct {
	Base
	AppointmentID    uuid.UUID `db:"appointment_id" json:"appointment_id"`
	CreatedByID      uuid.UUID `db:"created_by_id" json:"created_by_id"`
	Temperature      string    `db:"temperature" json:"temperature,omitempty"`
	BloodPressure    string    `db:"blood_pressure" json:"blood_pressure,omitempty"`
	HeartRate        string    `db:"heart_rate" json:"heart_rate,omitempty"`
	RespiratoryRate  string    `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation string    `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	Weight           string    `db:"weight" json:"weight,omitempty"`
	Height           string    `db:"height" json:"height,omitempty"`
	BMI              string    `db:"bmi" json:"bmi,omitempty"`
	Others           string    `db:"others" json:"others,omitempty"`
}

type VitalMeasurements struct {
	Temperature      string `json:"temperature,omitempty"`
	BloodPressure    string `json:"blood_pressure,omitempty"`
	HeartRate        string `json:"heart_rate,omitempty"`
	RespiratoryRate  string `json:"respiratory_rate,omitempty"`
	OxygenSaturation string `json:"oxygen_saturation,omitempty"`
	Weight           string `json:"weight,omitempty"`
	Height           string `json:"height,omitempty"`
	BMI              string `json:"bmi,omitempty"`
	Others           string `json:"others,omitempty"`
}

type VitalRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" binding:"required"`
	VitalMeasurements
}

// Apply copies the measurements onto v.
func (m VitalMeasurements) Apply(v *Vital) {
	v.Temperature = m.Temperature
	v.BloodPressure = m.BloodPressure
	v.HeartRate = m.HeartRate
	v.RespiratoryRate = m.RespiratoryRate
	v.OxygenSaturation = m.OxygenSaturation
	v.Weight = m.Weight
	v.Height = m.Height
	v.BMI = m.BMI
	v.Others = m.Others
}
