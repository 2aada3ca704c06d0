package store

import "time"

type Resident struct {
	ID                   int64  `json:"id"`
	Email                string `json:"email"`
	PasswordHash         string `json:"-"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Street               string `json:"street"`
	ZipCode              string `json:"zip_code"`
	Neighborhood         string `json:"neighborhood"`
	IsVolunteer          bool   `json:"is_volunteer"`
	IsOrganizationMember bool   `json:"is_organization_member"`
}

type Tree struct {
	ID             int64  `json:"id"`
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name"`
	Inventory      int    `json:"inventory"`
}

// TreeSeed is a catalog entry with its mature size bounds in feet.
type TreeSeed struct {
	CommonName     string
	ScientificName string
	Inventory      int
	MinHeight      float64
	MaxHeight      float64
	MinWidth       float64
	MaxWidth       float64
}

type TreeRequestSummary struct {
	ID                  int64     `json:"id"`
	SubmissionTimestamp time.Time `json:"submission_timestamp"`
	Approved            *bool     `json:"approved"`
}

type TreeRequestDetails struct {
	CommonName          string `json:"common_name"`
	ScientificName      string `json:"scientific_name"`
	Status              string `json:"status"`
	DaysSinceSubmission int    `json:"days_since_submission"`
	PermitStatus        string `json:"permit_status"`
}

type AdminTreeRequest struct {
	ID                  int64     `json:"id"`
	SubmissionTimestamp time.Time `json:"submission_timestamp"`
	Approved            *bool     `json:"approved"`
	Status              string    `json:"status"`
	CommonName          string    `json:"common_name"`
	ScientificName      string    `json:"scientific_name"`
}

type AdminTreeRequestDetails struct {
	ID                   int64             `json:"id"`
	ResidentID           int64             `json:"resident_id"`
	TreeCommonName       string            `json:"tree_common_name"`
	TreeScientificName   string            `json:"tree_scientific_name"`
	TreeInventory        int               `json:"tree_inventory"`
	SiteDescription      string            `json:"site_description"`
	ResidentStreet       string            `json:"resident_street"`
	ResidentZipCode      string            `json:"resident_zip_code"`
	ResidentNeighborhood string            `json:"resident_neighborhood"`
	Approved             *bool             `json:"approved"`
	PermitStatus         string            `json:"permit_status"`
	Status               string            `json:"status"`
	ScheduledVisits      []VisitSummary    `json:"scheduled_visits"`
	ScheduledPlantings   []PlantingSummary `json:"scheduled_plantings"`
}

type VisitSummary struct {
	EventID              int64     `json:"event_id"`
	EventTimestamp       time.Time `json:"event_timestamp"`
	Cancelled            bool      `json:"cancelled"`
	Notes                string    `json:"notes"`
	OrganizationMemberID int64     `json:"organization_member_id"`
	OutcomeRecorded      bool      `json:"outcome_recorded"`
}

type PlantingSummary struct {
	EventID         int64     `json:"event_id"`
	EventTimestamp  time.Time `json:"event_timestamp"`
	Cancelled       bool      `json:"cancelled"`
	Notes           string    `json:"notes"`
	OutcomeRecorded bool      `json:"outcome_recorded"`
}

type NewResident struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Street       string
	ZipCode      string
	Neighborhood string
}

type NewTreeRequest struct {
	ResidentID      int64
	TreeID          int64
	SiteDescription string
}

type NewVisit struct {
	TreeRequestID        int64
	Timestamp            time.Time
	Notes                string
	OrganizationMemberID int64
}

type VisitOutcome struct {
	ScheduledVisitID        int64
	Observations            string
	PhotoLibraryLink        string
	AdditionalVisitRequired bool
}

type NewPlanting struct {
	TreeRequestID int64
	Timestamp     time.Time
	Notes         string
}

type PlantingOutcome struct {
	ScheduledPlantingID     int64
	Observations            string
	BeforePhotosLibraryLink string
	AfterPhotosLibraryLink  string
	Successful              bool
}

// PlantingOutcomeResult reports what recording an outcome changed.
type PlantingOutcomeResult struct {
	TreeID             int64
	InventoryDecreased bool
}

type Person struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type PlantingDetails struct {
	EventID             int64     `json:"event_id"`
	TreeRequestID       int64     `json:"tree_request_id"`
	EventTimestamp      time.Time `json:"event_timestamp"`
	Cancelled           bool      `json:"cancelled"`
	Notes               string    `json:"notes"`
	SiteDescription     string    `json:"site_description"`
	OutcomeRecorded     bool      `json:"outcome_recorded"`
	OutcomeSuccessful   *bool     `json:"outcome_successful,omitempty"`
	OutcomeObservations *string   `json:"outcome_observations,omitempty"`
	AttendedVolunteers  []Person  `json:"attended_volunteers,omitempty"`
	AssignedVolunteers  []Person  `json:"assigned_volunteers"`
	AssignedOrgMembers  []Person  `json:"assigned_org_members"`
}

type VolunteerApplication struct {
	ResidentID int64     `json:"resident_id"`
	Created    time.Time `json:"created"`
	Notes      string    `json:"notes"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
}

// RequestContact is who to notify about a tree request decision.
type RequestContact struct {
	TreeRequestID int64
	Email         string
	FirstName     string
	CommonName    string
}
