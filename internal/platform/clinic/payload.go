package clinic

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is a clinical record entry. Body carries the rendered HTML.
type Document struct {
	AttendedAt     string `json:"dataatendimento"`
	Body           string `json:"q0"`
	Title          string `json:"titulo"`
	RecordClientID string `json:"idProntuarioCliente"`
	ModelID        string `json:"idModelo"`
}

// PatientPayload is the clinic's patient registration body. Fields the front
// desk does not collect are still sent, empty or null, because the clinic
// rejects bodies without them.
type PatientPayload struct {
	Name                          string   `json:"name"`
	NameSocial                    string   `json:"nameSocial"`
	BirthName                     *string  `json:"birthName"`
	FlagWhatsapp                  bool     `json:"flagWhatsapp"`
	CNS                           string   `json:"cns"`
	SNS                           string   `json:"sns"`
	Address                       string   `json:"address"`
	Number                        string   `json:"number"`
	RG                            string   `json:"rg"`
	CPF                           string   `json:"cpf"`
	Passport                      string   `json:"passport"`
	PassportValidDate             string   `json:"passport_valid_date"`
	Apartment                     string   `json:"apartment"`
	Neighborhood                  string   `json:"neighborhood"`
	City                          string   `json:"city"`
	State                         string   `json:"state"`
	Zip                           string   `json:"zip"`
	Cellphone                     string   `json:"cellphone"`
	Phone                         string   `json:"phone"`
	Email                         string   `json:"email"`
	Obs                           string   `json:"obs"`
	Sex                           string   `json:"sex"`
	DateOfBirth                   string   `json:"dateOfBirth"`
	Country                       string   `json:"country"`
	Profession                    string   `json:"profession"`
	EducationLevel                string   `json:"educationLevel"`
	Education                     string   `json:"education"`
	IDHealthInsurance             string   `json:"idHealthInsurance"`
	HealthProfessionalResponsible string   `json:"healthProfessionalResponsible"`
	HealthInsurancePlan           string   `json:"healthInsurancePlan"`
	HealthInsurancePlanCardNumber string   `json:"healthInsurancePlanCardNumber"`
	IndicatedBy                   string   `json:"indicatedBy"`
	Genre                         string   `json:"genre"`
	BloodType                     *string  `json:"bloodType"`
	BloodFactor                   *string  `json:"bloodFactor"`
	MaritalStatus                 string   `json:"maritalStatus"`
	Religion                      string   `json:"religion"`
	HealthInsurancePlanCardExpiry string   `json:"healthInsurancePlanCardNumberExpiry"`
	Kinships                      []string `json:"kinships"`
	ResponsibleName1              string   `json:"responsibleName1"`
	Kinship                       string   `json:"kinship"`
	Relationship                  string   `json:"relationship"`
	AcceptDuplicate               bool     `json:"acceptDuplicate"`
	AcceptDuplicateCPF            bool     `json:"acceptDuplicateCpf"`
	AcceptMinorPatient            bool     `json:"acceptMinorPatient"`
	CellphoneCountry              string   `json:"cellphoneCountry"`
}

// PatientID accepts the clinic's id as either a JSON string or number.
type PatientID string

func (id *PatientID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = PatientID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("patient id: %w", err)
	}
	*id = PatientID(n.String())
	return nil
}
