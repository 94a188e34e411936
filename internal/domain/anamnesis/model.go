package anamnesis

import (
	"time"

	"github.com/nutes/frontdesk/internal/platform/store"
)

// SourceRemoteLink marks records submitted through the remote questionnaire.
const SourceRemoteLink = "REMOTE_LINK"

// Document keys of the anamneses collection.
const (
	FieldPatientID   = "patientId"
	FieldPatientName = "patientName"
	FieldComplaint   = "complaint"
	FieldHistory     = "history"
	FieldMedications = "medications"
	FieldPainLevel   = "painLevel"
	FieldGoals       = "goals"
	FieldCreatedAt   = "createdAt"
)

// Record is one remote anamnesis submission. Records are written once and
// never updated.
type Record struct {
	ID          string    `bson:"_id,omitempty" json:"_id,omitempty"`
	PatientID   string    `bson:"patientId" json:"patientId"`
	PatientName string    `bson:"patientName" json:"patientName"`
	Complaint   string    `bson:"complaint" json:"complaint"`
	History     string    `bson:"history" json:"history"`
	Medications string    `bson:"medications" json:"medications"`
	PainLevel   *int      `bson:"painLevel,omitempty" json:"painLevel,omitempty"`
	Goals       string    `bson:"goals" json:"goals"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	Source      string    `bson:"source" json:"source"`
}

// RecentEntry is the projection shown in the "latest submissions" list.
type RecentEntry struct {
	ID          string    `bson:"_id" json:"_id"`
	PatientName string    `bson:"patientName" json:"patientName"`
	Complaint   string    `bson:"complaint" json:"complaint"`
	PainLevel   *int      `bson:"painLevel,omitempty" json:"painLevel,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Dashboard is the full anamnesis analytics page.
type Dashboard struct {
	TotalCount       int64          `json:"totalCount"`
	AveragePainLevel float64        `json:"averagePainLevel"`
	NewToday         int64          `json:"newToday"`
	PainDistribution []store.Bucket `json:"painDistribution"`
	DailyVolume      []store.Bucket `json:"dailyVolume"`
	RecentEntries    []RecentEntry  `json:"recentEntries"`
	TopComplaints    []store.Bucket `json:"topComplaints"`
	TopHistory       []store.Bucket `json:"topHistory"`
	TopMedications   []store.Bucket `json:"topMedications"`
	TopGoals         []store.Bucket `json:"topGoals"`
	GeneratedAt      time.Time      `json:"generatedAt"`
}
