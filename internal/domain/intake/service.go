package intake

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nutes/frontdesk/internal/domain/anamnesis"
	"github.com/nutes/frontdesk/internal/domain/cohort"
	"github.com/nutes/frontdesk/internal/platform/clinic"
	"github.com/nutes/frontdesk/internal/platform/events"
	"github.com/nutes/frontdesk/internal/platform/store"
)

const (
	unknownPatientName = "Desconhecido"
	defaultPriority    = "Normal"
	cpfLength          = 11
	maxPainLevel       = 10
)

// RecordWriter is the part of the record store intake writes to.
type RecordWriter interface {
	Insert(ctx context.Context, coll store.Collection, doc any) (string, error)
}

// Clinic is the external clinic API. A nil Clinic skips the clinic calls.
type Clinic interface {
	CreatePatient(ctx context.Context, p clinic.PatientPayload) (*clinic.Patient, error)
	SaveDocument(ctx context.Context, patientID string, doc clinic.Document) error
}

type Service struct {
	records   RecordWriter
	clinic    Clinic
	publisher events.Publisher
	loc       *time.Location
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(records RecordWriter, c Clinic, publisher events.Publisher, loc *time.Location, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{records: records, clinic: c, publisher: publisher, loc: loc, logger: logger, now: time.Now}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// SubmitAnamnesis saves the patient's answers to the clinic record and then
// stores them for analytics.
func (s *Service) SubmitAnamnesis(ctx context.Context, sub AnamnesisSubmission) (*Receipt, error) {
	sub.PatientID = strings.TrimSpace(sub.PatientID)
	if sub.PatientID == "" {
		return nil, invalid("patientId is required")
	}
	if sub.PainLevel != nil && (*sub.PainLevel < 0 || *sub.PainLevel > maxPainLevel) {
		return nil, invalid("painLevel must be between 0 and %d", maxPainLevel)
	}

	now := s.now()
	if s.clinic != nil {
		doc, err := anamnesisDocument(sub, now.In(s.loc))
		if err != nil {
			return nil, err
		}
		if err := s.clinic.SaveDocument(ctx, sub.PatientID, doc); err != nil {
			return nil, fmt.Errorf("saving anamnesis document: %w", err)
		}
	}

	name := strings.TrimSpace(sub.PatientName)
	if name == "" {
		name = unknownPatientName
	}
	rec := anamnesis.Record{
		PatientID:   sub.PatientID,
		PatientName: name,
		Complaint:   sub.Complaint,
		History:     sub.History,
		Medications: sub.Medications,
		PainLevel:   sub.PainLevel,
		Goals:       sub.Goals,
		CreatedAt:   now.UTC(),
		Source:      anamnesis.SourceRemoteLink,
	}
	id, err := s.records.Insert(ctx, store.Anamneses, rec)
	if err != nil {
		return nil, fmt.Errorf("storing anamnesis: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeAnamnesisRecorded,
		PatientID:  sub.PatientID,
		RecordID:   id,
		OccurredAt: rec.CreatedAt,
	})
	return &Receipt{RecordID: id, PatientID: sub.PatientID, PatientName: name, CreatedAt: rec.CreatedAt}, nil
}

// Register creates the patient in the clinic and stores the analytics
// snapshot of the registration.
func (s *Service) Register(ctx context.Context, r Registration) (*Receipt, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return nil, invalid("name is required")
	}
	cpf := digits(r.CPF)
	if len(cpf) != cpfLength {
		return nil, invalid("cpf must have %d digits", cpfLength)
	}

	now := s.now()
	var birth *time.Time
	if r.BirthDate != "" {
		t, err := time.ParseInLocation("2006-01-02", r.BirthDate, s.loc)
		if err != nil {
			return nil, invalid("dateOfBirth must be YYYY-MM-DD")
		}
		if t.After(now) {
			return nil, invalid("dateOfBirth is in the future")
		}
		birth = &t
	}

	affiliation := ""
	if r.IsUfpeCommunity != nil && r.IsUfpeCommunity != "" {
		a := cohort.ParseAffiliation(r.IsUfpeCommunity)
		if a == cohort.AffiliationUnknown {
			return nil, invalid("isUfpeCommunity must be sim or não")
		}
		affiliation = a.Label()
	}

	priority := strings.TrimSpace(r.Priority)
	if priority == "" {
		priority = defaultPriority
	}
	r.Priority = priority

	patientID, patientName := "", r.Name
	if s.clinic != nil {
		p, err := s.clinic.CreatePatient(ctx, patientPayload(r, cpf, birth, affiliation))
		if err != nil {
			return nil, fmt.Errorf("creating clinic patient: %w", err)
		}
		patientID = string(p.ID)
		if p.Name != "" {
			patientName = p.Name
		}
	}

	// Without a clinic the record id stands in for the clinic patient id, so
	// it is assigned here rather than by the store.
	recordID := ""
	if patientID == "" {
		recordID = uuid.NewString()
		patientID = recordID
	}

	rec := cohort.Record{
		ID:   recordID,
		CPF:  cpf,
		Name: r.Name,
		Demographics: cohort.Demographics{
			Gender:       r.Sex,
			RaceColor:    r.Color,
			City:         r.City,
			Neighborhood: r.Neighborhood,
		},
		Socioeconomic: cohort.Socioeconomic{
			EducationLevel: r.EducationLevel,
			MaritalStatus:  r.MaritalStatus,
			FamilyIncome:   r.FamilyIncome,
			HousingStatus:  r.HousingStatus,
			ResidentsCount: residents(r.ResidentsCount),
			TransportType:  r.TransportType,
			UfpeLinkType:   r.UfpeLinkType,
		},
		Triage: cohort.Triage{
			ReferralSource: r.ReferralSource,
			Priority:       priority,
			Specialties:    r.Specialties,
			Complaint:      r.Complaint,
			Lifestyle:      r.Lifestyle,
		},
		System: cohort.System{
			LegacyPatientID: patientID,
			Status:          cohort.StatusTriageCompleted,
		},
		CreatedAt: now.UTC(),
	}
	if affiliation != "" {
		rec.Socioeconomic.IsUfpeCommunity = affiliation
	}
	if rec.Triage.Specialties == nil {
		rec.Triage.Specialties = []string{}
	}
	if birth != nil {
		age := ageAt(*birth, now.In(s.loc))
		rec.Demographics.BirthDate = birth
		rec.Demographics.AgeAtRegistration = &age
	}

	id, err := s.records.Insert(ctx, store.CohortRecords, rec)
	if err != nil {
		return nil, fmt.Errorf("storing registration: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeRegistrationRecorded,
		PatientID:  patientID,
		RecordID:   id,
		OccurredAt: rec.CreatedAt,
	})
	return &Receipt{RecordID: id, PatientID: patientID, PatientName: patientName, CreatedAt: rec.CreatedAt}, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("event", e.Type).Str("record_id", e.RecordID).Msg("intake event not published")
	}
}

// ageAt is the age in whole years on day now.
func ageAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

// residents parses the household size; anything that is not a number is 0.
func residents(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
