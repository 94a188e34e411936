package cohort

import (
	"time"

	"github.com/nutes/frontdesk/internal/platform/store"
)

// StatusTriageCompleted is the status of every record written at registration.
const StatusTriageCompleted = "TRIAGE_COMPLETED"

// Document keys of the patientanalytics collection.
const (
	FieldAge             = "demographics.ageAtRegistration"
	FieldGender          = "demographics.gender"
	FieldCity            = "demographics.city"
	FieldNeighborhood    = "demographics.neighborhood"
	FieldEducationLevel  = "socioeconomic.educationLevel"
	FieldMaritalStatus   = "socioeconomic.maritalStatus"
	FieldFamilyIncome    = "socioeconomic.familyIncome"
	FieldHousingStatus   = "socioeconomic.housingStatus"
	FieldResidentsCount  = "socioeconomic.residentsCount"
	FieldTransportType   = "socioeconomic.transportType"
	FieldUfpeCommunity   = "socioeconomic.isUfpeCommunity"
	FieldUfpeLinkType    = "socioeconomic.ufpeLinkType"
	FieldReferralSource  = "triage.referralSource"
	FieldPriority        = "triage.priority"
	FieldSpecialties     = "triage.specialties"
	FieldTriageComplaint = "triage.complaint"
	FieldLifestyle       = "triage.lifestyle"
)

// Record is the denormalized registration snapshot kept for analytics.
type Record struct {
	ID            string        `bson:"_id,omitempty" json:"_id,omitempty"`
	CPF           string        `bson:"cpf" json:"cpf"`
	Name          string        `bson:"name" json:"name"`
	Demographics  Demographics  `bson:"demographics" json:"demographics"`
	Socioeconomic Socioeconomic `bson:"socioeconomic" json:"socioeconomic"`
	Triage        Triage        `bson:"triage" json:"triage"`
	System        System        `bson:"system" json:"system"`
	CreatedAt     time.Time     `bson:"createdAt" json:"createdAt"`
}

type Demographics struct {
	BirthDate         *time.Time `bson:"birthDate,omitempty" json:"birthDate,omitempty"`
	AgeAtRegistration *int       `bson:"ageAtRegistration,omitempty" json:"ageAtRegistration,omitempty"`
	Gender            string     `bson:"gender" json:"gender"`
	RaceColor         string     `bson:"raceColor" json:"raceColor"`
	City              string     `bson:"city" json:"city"`
	Neighborhood      string     `bson:"neighborhood" json:"neighborhood"`
}

// Socioeconomic keeps FamilyIncome as the free text typed at the front desk.
// IsUfpeCommunity is whatever representation the writer used (string or
// bool); readers go through ParseAffiliation.
type Socioeconomic struct {
	EducationLevel  string `bson:"educationLevel" json:"educationLevel"`
	MaritalStatus   string `bson:"maritalStatus" json:"maritalStatus"`
	FamilyIncome    string `bson:"familyIncome" json:"familyIncome"`
	HousingStatus   string `bson:"housingStatus" json:"housingStatus"`
	ResidentsCount  int    `bson:"residentsCount" json:"residentsCount"`
	TransportType   string `bson:"transportType" json:"transportType"`
	IsUfpeCommunity any    `bson:"isUfpeCommunity,omitempty" json:"isUfpeCommunity,omitempty"`
	UfpeLinkType    string `bson:"ufpeLinkType" json:"ufpeLinkType"`
}

type Triage struct {
	ReferralSource string   `bson:"referralSource" json:"referralSource"`
	Priority       string   `bson:"priority" json:"priority"`
	Specialties    []string `bson:"specialties" json:"specialties"`
	Complaint      string   `bson:"complaint" json:"complaint"`
	Lifestyle      string   `bson:"lifestyle" json:"lifestyle"`
}

type System struct {
	LegacyPatientID string `bson:"legacyPatientId" json:"legacyPatientId"`
	Status          string `bson:"status" json:"status"`
}

// Dashboard is the patient cohort analytics page.
type Dashboard struct {
	TotalCount    int64                `json:"totalCount"`
	Demographics  DemographicsSummary  `json:"demographics"`
	Socioeconomic SocioeconomicSummary `json:"socioeconomic"`
	Triage        TriageSummary        `json:"triage"`
	GeneratedAt   time.Time            `json:"generatedAt"`
}

type DemographicsSummary struct {
	AgeBuckets          []store.Bucket `json:"ageBuckets"`
	GenderDistribution  []store.Bucket `json:"genderDistribution"`
	TopCities           []store.Bucket `json:"topCities"`
	TopNeighborhoods    []store.Bucket `json:"topNeighborhoods"`
	NeighborhoodDensity []store.Bucket `json:"neighborhoodDensity"`
}

type SocioeconomicSummary struct {
	PerCapitaIncome              float64        `json:"perCapitaIncome"`
	IncomeBrackets               []store.Bucket `json:"incomeBrackets"`
	MaritalStatus                []store.Bucket `json:"maritalStatus"`
	HousingStatus                []store.Bucket `json:"housingStatus"`
	TransportType                []store.Bucket `json:"transportType"`
	EducationLevel               []store.Bucket `json:"educationLevel"`
	ResidentsDistribution        []store.Bucket `json:"residentsDistribution"`
	UfpeAffiliationSummary       []store.Bucket `json:"ufpeAffiliationSummary"`
	UfpeAffiliationNormalized    []store.Bucket `json:"ufpeAffiliationNormalized"`
	UfpeAffiliationTypeBreakdown []store.Bucket `json:"ufpeAffiliationTypeBreakdown"`
}

type TriageSummary struct {
	PriorityDistribution []store.Bucket `json:"priorityDistribution"`
	TopComplaints        []store.Bucket `json:"topComplaints"`
	TopReferralSources   []store.Bucket `json:"topReferralSources"`
	TopLifestyleNotes    []store.Bucket `json:"topLifestyleNotes"`
	TopSpecialties       []store.Bucket `json:"topSpecialties"`
}
