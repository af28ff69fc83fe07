package model

import "strings"

type AppointmentPurpose string

const (
	PurposeRoutineHealthCheckup                AppointmentPurpose = "ROUTINE_HEALTH_CHECKUP"
	PurposeMedicalConsultationAndTreatment     AppointmentPurpose = "MEDICAL_CONSULTATION_AND_TREATMENT"
	PurposeFollowupAppointment                 AppointmentPurpose = "FOLLOWUP_APPOINTMENT"
	PurposeMaternalChildHealth                 AppointmentPurpose = "MATERNAL_CHILD_HEALTH"
	PurposeImmunizationsAndVaccinations        AppointmentPurpose = "IMMUNIZATIONS_AND_VACCINATIONS"
	PurposeFamilyPlanning                      AppointmentPurpose = "FAMILY_PLANNING"
	PurposeHIVAIDSCounselingAndTesting         AppointmentPurpose = "HIV_AIDS_COUNSELING_AND_TESTING"
	PurposeTuberculosisScreeningAndTreatment   AppointmentPurpose = "TUBERCULOSIS_SCREENING_AND_TREATMENT"
	PurposeNutritionCounselingAndSupport       AppointmentPurpose = "NUTRITION_COUNSELING_AND_SUPPORT"
	PurposeChronicDiseaseManagement            AppointmentPurpose = "CHRONIC_DISEASE_MANAGEMENT"
	PurposeMentalHealthSupportOrCounseling     AppointmentPurpose = "MENTAL_HEALTH_SUPPORT_OR_COUNSELING"
	PurposeHealthEducationAndAwareness         AppointmentPurpose = "HEALTH_EDUCATION_AND_AWARENESS"
	PurposeAntenatalOrPostnatalCare            AppointmentPurpose = "ANTENATAL_OR_POSTNATAL_CARE"
	PurposeSexualAndReproductiveHealthServices AppointmentPurpose = "SEXUAL_AND_REPRODUCTIVE_HEALTH_SERVICES"
	PurposeMalariaDiagnosisAndTreatment        AppointmentPurpose = "MALARIA_DIAGNOSIS_AND_TREATMENT"
	PurposeHealthScreeningCampaigns            AppointmentPurpose = "HEALTH_SCREENING_CAMPAIGNS"
	PurposeDrugOrSubstanceAbuseCounseling      AppointmentPurpose = "DRUG_OR_SUBSTANCE_ABUSE_COUNSELING"
	PurposeDentalCare                          AppointmentPurpose = "DENTAL_CARE"
	PurposeReferral                            AppointmentPurpose = "REFERRAL"
	PurposeOthers                              AppointmentPurpose = "OTHERS"
)

var appointmentPurposes = map[AppointmentPurpose]struct{}{
	PurposeRoutineHealthCheckup:                {},
	PurposeMedicalConsultationAndTreatment:     {},
	PurposeFollowupAppointment:                 {},
	PurposeMaternalChildHealth:                 {},
	PurposeImmunizationsAndVaccinations:        {},
	PurposeFamilyPlanning:                      {},
	PurposeHIVAIDSCounselingAndTesting:         {},
	PurposeTuberculosisScreeningAndTreatment:   {},
	PurposeNutritionCounselingAndSupport:       {},
	PurposeChronicDiseaseManagement:            {},
	PurposeMentalHealthSupportOrCounseling:     {},
	PurposeHealthEducationAndAwareness:         {},
	PurposeAntenatalOrPostnatalCare:            {},
	PurposeSexualAndReproductiveHealthServices: {},
	PurposeMalariaDiagnosisAndTreatment:        {},
	PurposeHealthScreeningCampaigns:            {},
	PurposeDrugOrSubstanceAbuseCounseling:      {},
	PurposeDentalCare:                          {},
	PurposeReferral:                            {},
	PurposeOthers:                              {},
}

func (p AppointmentPurpose) Valid() bool {
	_, ok := appointmentPurposes[p]
	return ok
}

func (p AppointmentPurpose) Label() string {
	return strings.ToLower(strings.ReplaceAll(string(p), "_", " "))
}
