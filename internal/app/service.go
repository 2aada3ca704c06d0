package app

import (
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"treeplant/api/internal/authpw"
	"treeplant/api/internal/config"
	"treeplant/api/internal/export"
	"treeplant/api/internal/lifecycle"
	"treeplant/api/internal/search"
	"treeplant/api/internal/session"
	"treeplant/api/internal/store"
)

type dataStore interface {
	Ping(context.Context) error
	DatabaseVersion(context.Context) (string, error)

	CreateResident(context.Context, store.NewResident) (int64, error)
	GetResidentByEmail(context.Context, string) (store.Resident, error)
	GetResidentByID(context.Context, int64) (store.Resident, error)
	IsOrganizationMember(context.Context, int64) (bool, error)

	ListNeighborhoods(context.Context) ([]string, error)
	ListTrees(context.Context) ([]store.Tree, error)
	UpdateTreeInventory(context.Context, int64, int) (store.Tree, error)
	GetTree(context.Context, int64) (store.Tree, error)
	SeedCatalog(context.Context, []string, []store.TreeSeed) error

	ListTreeRequests(context.Context, int64) ([]store.TreeRequestSummary, error)
	GetTreeRequestDetails(context.Context, int64, int64) (store.TreeRequestDetails, error)
	CreateTreeRequest(context.Context, store.NewTreeRequest) (int64, error)
	TreeRequestOwner(context.Context, int64) (int64, error)
	ListAllTreeRequests(context.Context) ([]store.AdminTreeRequest, error)
	GetAdminTreeRequestDetails(context.Context, int64) (store.AdminTreeRequestDetails, error)
	SetTreeRequestApproval(context.Context, int64, bool) error
	UpdatePermitStatus(context.Context, int64, string) error
	StatusFacts(context.Context, int64) (lifecycle.Facts, error)
	RequestContact(context.Context, int64) (store.RequestContact, error)

	ScheduleVisit(context.Context, store.NewVisit) (int64, error)
	CancelVisit(context.Context, int64) error
	RecordVisitOutcome(context.Context, store.VisitOutcome) error
	VisitTreeRequest(context.Context, int64) (int64, error)
	SchedulePlanting(context.Context, store.NewPlanting) (int64, error)
	CancelPlanting(context.Context, int64) error
	AddOrgMemberToPlanting(context.Context, int64, int64) error
	AddVolunteerToPlanting(context.Context, int64, int64) error
	RecordPlantingOutcome(context.Context, store.PlantingOutcome) (store.PlantingOutcomeResult, error)
	AddVolunteerToPlantingEvent(context.Context, int64, int64) error
	GetPlantingDetails(context.Context, int64) (store.PlantingDetails, error)
	ListAvailableVolunteers(context.Context) ([]store.Person, error)
	ListAvailableOrgMembers(context.Context) ([]store.Person, error)

	CreateVolunteerApplication(context.Context, int64, string) error
	ListPendingVolunteerApplications(context.Context) ([]store.VolunteerApplication, error)
	ApproveVolunteer(context.Context, int64) (store.Resident, error)

	reportStore
}

type reportStore interface {
	ReportTreeRequestsStatus(context.Context) ([]store.RequestStatusRow, error)
	ReportTreesPlanted(context.Context, string) ([]store.TreesPlantedRow, error)
	ReportTreeSpeciesStatistics(context.Context) ([]store.SpeciesStatisticsRow, error)
	ReportNeighborhoods(context.Context) ([]store.NeighborhoodReportRow, error)
	ReportVolunteerActivity(context.Context, int) ([]store.VolunteerActivityRow, error)
	ReportOrgMemberActivity(context.Context, int) ([]store.OrgMemberActivityRow, error)
	ReportSpeciesByNeighborhood(context.Context, string) ([]store.SpeciesNeighborhoodRow, error)
	ReportTreesBySize(context.Context, store.SizeBounds) ([]store.TreeSizeRow, error)
	ReportVolunteerAttendance(context.Context) ([]store.VolunteerAttendanceRow, error)
}

// SessionStore keeps refresh tokens. session.RedisStore implements it.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, sess session.Session, expiresAt time.Time) error
	ConsumeRefreshSession(ctx context.Context, tokenHash string) (session.Session, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeResidentSessions(ctx context.Context, residentID int64) error
	Ping(ctx context.Context) error
}

type Notifier interface {
	IsConfigured() bool
	SendRequestDecision(to, firstName, commonName string, accepted bool) error
	SendVolunteerApproved(to, firstName string) error
}

type TreeSearch interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexTree(tree search.TreeRecord)
	ReindexAllFromPG(ctx context.Context)
}

type ReportExporter interface {
	Export(ctx context.Context, table export.Table, format export.Format) (*export.Result, error)
}

type PhotoStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

type MetricsRecorder interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
	ObservePlantingOutcome(successful, inventoryDecreased bool)
	ObserveNotification(kind string, err error)
}

// Dependencies are the optional collaborators of Service. Nil fields turn
// the matching feature off.
type Dependencies struct {
	Sessions SessionStore
	Mailer   Notifier
	Search   TreeSearch
	Exporter ReportExporter
	Photos   PhotoStore
	Metrics  MetricsRecorder
}

type Service struct {
	cfg       config.Config
	store     dataStore
	passwords *authpw.Service
	deps      Dependencies
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg config.Config, dataStore *store.PostgresStore, deps Dependencies, logger *zap.Logger) *Service {
	return newService(cfg, dataStore, deps, logger)
}

func newService(cfg config.Config, dataStore dataStore, deps Dependencies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		passwords: authpw.NewService(dataStore, cfg.BcryptCost),
		deps:      deps,
		logger:    logger,
		now:       time.Now,
	}
}

// Bootstrap seeds the Oakland neighborhoods and the tree catalog. Existing
// rows are left alone, so it is safe on every start.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.store.SeedCatalog(ctx, seedNeighborhoods, seedTrees); err != nil {
		return err
	}
	if s.deps.Search != nil {
		s.deps.Search.ReindexAllFromPG(ctx)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PingSessions reports whether refresh sessions are configured and, if so,
// whether Redis answers.
func (s *Service) PingSessions(ctx context.Context) (bool, error) {
	if s.deps.Sessions == nil {
		return false, nil
	}
	return true, s.deps.Sessions.Ping(ctx)
}

func (s *Service) DatabaseVersion(ctx context.Context) (string, error) {
	return s.store.DatabaseVersion(ctx)
}

func (s *Service) SMTPConfigured() bool {
	return s.deps.Mailer != nil && s.deps.Mailer.IsConfigured()
}

func (s *Service) ListNeighborhoods(ctx context.Context) ([]string, error) {
	return s.store.ListNeighborhoods(ctx)
}

func (s *Service) ListTrees(ctx context.Context) ([]store.Tree, error) {
	return s.store.ListTrees(ctx)
}

func (s *Service) SearchTrees(ctx context.Context, q search.Query) (search.Response, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return search.Response{}, validationError("q", "is required")
	}
	if s.deps.Search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	return s.deps.Search.Search(ctx, q), nil
}

func (s *Service) UpdateTreeInventory(ctx context.Context, treeID int64, inventory int) (store.Tree, error) {
	if err := requirePositive("tree_id", treeID); err != nil {
		return store.Tree{}, err
	}
	if inventory < 0 || inventory > maxColumnInt {
		return store.Tree{}, validationError("inventory", "must be between 0 and 2147483647")
	}
	tree, err := s.store.UpdateTreeInventory(ctx, treeID, inventory)
	if err != nil {
		return store.Tree{}, err
	}
	s.reindexTree(tree)
	return tree, nil
}

func (s *Service) reindexTree(tree store.Tree) {
	if s.deps.Search == nil {
		return
	}
	s.deps.Search.IndexTree(search.TreeRecord{
		ID:             tree.ID,
		CommonName:     tree.CommonName,
		ScientificName: tree.ScientificName,
		Inventory:      tree.Inventory,
	})
}

// parseTimestamp accepts RFC 3339 and the minute-precision forms sent by
// datetime-local inputs.
func parseTimestamp(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, validationError(field, "is required")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, validationError(field, "must be a timestamp like 2006-01-02T15:04")
}

// Keys and counts are INTEGER columns.
const maxColumnInt = math.MaxInt32

func requirePositive(field string, value int64) error {
	if value <= 0 || value > maxColumnInt {
		return validationError(field, "must be a positive integer")
	}
	return nil
}
