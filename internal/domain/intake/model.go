package intake

import (
	"errors"
	"time"
)

// ErrValidation marks submissions rejected before anything is sent or stored.
var ErrValidation = errors.New("validation failed")

// AnamnesisSubmission is what the patient fills in through the remote link.
type AnamnesisSubmission struct {
	PatientID   string `json:"patientId"`
	PatientName string `json:"patientName"`
	Complaint   string `json:"complaint"`
	History     string `json:"history"`
	Medications string `json:"medications"`
	PainLevel   *int   `json:"painLevel"`
	Goals       string `json:"goals"`
}

// Registration is the front-desk quick registration form. BirthDate is an
// ISO date (YYYY-MM-DD). IsUfpeCommunity accepts sim/não in any casing or a
// boolean.
type Registration struct {
	Name            string   `json:"name"`
	SocialName      string   `json:"nameSocial"`
	CPF             string   `json:"cpf"`
	RG              string   `json:"rg"`
	CNS             string   `json:"cns"`
	BirthDate       string   `json:"dateOfBirth"`
	Sex             string   `json:"sex"`
	Color           string   `json:"color"`
	Cellphone       string   `json:"cellphone"`
	SecurityContact string   `json:"securityContact"`
	Zip             string   `json:"zip"`
	Address         string   `json:"address"`
	Neighborhood    string   `json:"neighborhood"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	MaritalStatus   string   `json:"maritalStatus"`
	EducationLevel  string   `json:"educationLevel"`
	Religion        string   `json:"religion"`
	IsUfpeCommunity any      `json:"isUfpeCommunity"`
	UfpeLinkType    string   `json:"ufpeType"`
	HousingStatus   string   `json:"housingStatus"`
	FamilyIncome    string   `json:"familyIncome"`
	ResidentsCount  string   `json:"residentsCount"`
	TransportType   string   `json:"transportType"`
	ReferralSource  string   `json:"referralSource"`
	Complaint       string   `json:"complaint"`
	Diagnosis       string   `json:"diagnosis"`
	Specialties     []string `json:"specialties"`
	Priority        string   `json:"priority"`
	Lifestyle       string   `json:"lifestyle"`
}

// Receipt acknowledges a stored submission. PatientID is the clinic id when
// the clinic API is configured.
type Receipt struct {
	RecordID    string    `json:"recordId"`
	PatientID   string    `json:"patientId"`
	PatientName string    `json:"patientName"`
	CreatedAt   time.Time `json:"createdAt"`
}
