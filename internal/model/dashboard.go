package model

type ProviderDashboard struct {
	TodayAppointments              []*AppointmentSummary `json:"today_appointments"`
	TotalActivePatientsInLastMonth int                   `json:"total_active_patients_in_last_month"`
	NoShowRate                     float64               `json:"no_show_rate"`
	WaitTimeRate                   float64               `json:"wait_time_rate"`
}

type PatientDashboard struct {
	NextAppointment      *Appointment   `json:"next_appointment"`
	LastVital            *Vital         `json:"last_vital"`
	LastSoapNote         *SoapNote      `json:"last_soap_note"`
	UpcomingAppointments []*Appointment `json:"upcoming_appointments"`
}
