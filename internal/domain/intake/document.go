package intake

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/nutes/frontdesk/internal/platform/clinic"
)

const (
	anamnesisTitle   = "Anamnese Remota"
	recordClientID   = "2"
	anamnesisModelID = "1"
)

var anamnesisHTML = template.Must(template.New("anamnesis").Parse(
	`<div style="font-family: Arial, sans-serif;">` +
		`<h3 style="color: #17af95;">Anamnese Remota (Preenchimento pelo Paciente)</h3>` +
		`{{range .}}<p><strong>{{.Label}}:</strong> {{.Value}}</p>{{end}}` +
		`</div>`))

type documentField struct {
	Label string
	Value string
}

// anamnesisDocument renders the submission as the clinic's HTML record entry,
// dated at in pt-BR format.
func anamnesisDocument(s AnamnesisSubmission, at time.Time) (clinic.Document, error) {
	pain := ""
	if s.PainLevel != nil {
		pain = fmt.Sprint(*s.PainLevel)
	}
	var buf bytes.Buffer
	err := anamnesisHTML.Execute(&buf, []documentField{
		{"Queixa Principal", s.Complaint},
		{"Histórico de Doenças/Cirurgias", s.History},
		{"Medicamentos em uso", s.Medications},
		{"Nível de Dor (0-10)", pain},
		{"Objetivos com o tratamento", s.Goals},
	})
	if err != nil {
		return clinic.Document{}, fmt.Errorf("rendering anamnesis document: %w", err)
	}
	return clinic.Document{
		AttendedAt:     at.Format("02/01/2006 15:04"),
		Body:           buf.String(),
		Title:          anamnesisTitle,
		RecordClientID: recordClientID,
		ModelID:        anamnesisModelID,
	}, nil
}

// registrationNotes is the free-text summary attached to the clinic patient.
func registrationNotes(r Registration, affiliation string) string {
	var b strings.Builder
	b.WriteString("CADASTRO RÁPIDO - TRIAGEM\n")
	b.WriteString("-------------------------\n")
	fmt.Fprintf(&b, "Queixa Principal: %s\n", r.Complaint)
	fmt.Fprintf(&b, "Diagnóstico Prévio: %s\n", r.Diagnosis)
	fmt.Fprintf(&b, "Especialidades: %s\n", strings.Join(r.Specialties, ", "))
	fmt.Fprintf(&b, "Prioridade: %s\n", r.Priority)
	b.WriteString("\nDADOS SOCIAIS:\n")
	fmt.Fprintf(&b, "Vínculo UFPE: %s (%s)\n", affiliation, r.UfpeLinkType)
	fmt.Fprintf(&b, "Moradia: %s | Renda: %s\n", r.HousingStatus, r.FamilyIncome)
	fmt.Fprintf(&b, "Transporte: %s\n", r.TransportType)
	fmt.Fprintf(&b, "Hábitos: %s\n", r.Lifestyle)
	fmt.Fprintf(&b, "Contato Segurança: %s\n", r.SecurityContact)
	fmt.Fprintf(&b, "Origem: %s", r.ReferralSource)
	return b.String()
}

func patientPayload(r Registration, cpf string, birth *time.Time, affiliation string) clinic.PatientPayload {
	dob := ""
	if birth != nil {
		dob = birth.Format("02/01/2006")
	}
	return clinic.PatientPayload{
		Name:               strings.ToUpper(r.Name),
		NameSocial:         r.SocialName,
		CNS:                r.CNS,
		Address:            r.Address,
		Number:             "S/N",
		RG:                 r.RG,
		CPF:                cpf,
		Neighborhood:       r.Neighborhood,
		City:               r.City,
		State:              r.State,
		Zip:                r.Zip,
		Cellphone:          digits(r.Cellphone),
		Obs:                registrationNotes(r, affiliation),
		Sex:                r.Sex,
		DateOfBirth:        dob,
		Country:            "BR",
		EducationLevel:     r.EducationLevel,
		IndicatedBy:        r.ReferralSource,
		MaritalStatus:      r.MaritalStatus,
		Religion:           r.Religion,
		Kinships:           []string{},
		AcceptDuplicateCPF: true,
		AcceptMinorPatient: true,
		CellphoneCountry:   "BR",
	}
}
