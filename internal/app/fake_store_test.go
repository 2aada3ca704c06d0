package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"treeplant/api/internal/config"
	"treeplant/api/internal/lifecycle"
	"treeplant/api/internal/store"
)

type fakeStore struct {
	residents map[int64]store.Resident
	facts     map[int64]lifecycle.Facts
	owners    map[int64]int64

	pingFn                  func(context.Context) error
	createResidentFn        func(context.Context, store.NewResident) (int64, error)
	createTreeRequestFn     func(context.Context, store.NewTreeRequest) (int64, error)
	getTreeRequestDetailsFn func(context.Context, int64, int64) (store.TreeRequestDetails, error)
	setApprovalFn           func(context.Context, int64, bool) error
	updatePermitStatusFn    func(context.Context, int64, string) error
	requestContactFn        func(context.Context, int64) (store.RequestContact, error)
	scheduleVisitFn         func(context.Context, store.NewVisit) (int64, error)
	cancelPlantingFn        func(context.Context, int64) error
	recordPlantingFn        func(context.Context, store.PlantingOutcome) (store.PlantingOutcomeResult, error)
	updateInventoryFn       func(context.Context, int64, int) (store.Tree, error)
	getTreeFn               func(context.Context, int64) (store.Tree, error)
	approveVolunteerFn      func(context.Context, int64) (store.Resident, error)
	volunteerApplicationFn  func(context.Context, int64, string) error
	seedCatalogFn           func(context.Context, []string, []store.TreeSeed) error
	treesBySizeFn           func(context.Context, store.SizeBounds) ([]store.TreeSizeRow, error)
	volunteerActivityFn     func(context.Context, int) ([]store.VolunteerActivityRow, error)
	treesPlantedFn          func(context.Context, string) ([]store.TreesPlantedRow, error)
}

func newFakeStore(residents ...store.Resident) *fakeStore {
	fs := &fakeStore{
		residents: map[int64]store.Resident{},
		facts:     map[int64]lifecycle.Facts{},
		owners:    map[int64]int64{},
	}
	for _, r := range residents {
		fs.residents[r.ID] = r
	}
	return fs
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) DatabaseVersion(context.Context) (string, error) {
	return "PostgreSQL 16.4", nil
}

func (f *fakeStore) CreateResident(ctx context.Context, resident store.NewResident) (int64, error) {
	if f.createResidentFn != nil {
		return f.createResidentFn(ctx, resident)
	}
	id := int64(len(f.residents) + 1)
	f.residents[id] = store.Resident{
		ID:           id,
		Email:        resident.Email,
		PasswordHash: resident.PasswordHash,
		FirstName:    resident.FirstName,
		LastName:     resident.LastName,
	}
	return id, nil
}

func (f *fakeStore) GetResidentByEmail(_ context.Context, email string) (store.Resident, error) {
	for _, r := range f.residents {
		if strings.EqualFold(r.Email, email) {
			return r, nil
		}
	}
	return store.Resident{}, store.ErrNotFound
}

func (f *fakeStore) GetResidentByID(_ context.Context, id int64) (store.Resident, error) {
	r, ok := f.residents[id]
	if !ok {
		return store.Resident{}, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) IsOrganizationMember(_ context.Context, id int64) (bool, error) {
	return f.residents[id].IsOrganizationMember, nil
}

func (f *fakeStore) ListNeighborhoods(context.Context) ([]string, error) {
	return []string{"Fruitvale", "Temescal"}, nil
}

func (f *fakeStore) ListTrees(context.Context) ([]store.Tree, error) {
	return []store.Tree{{ID: 1, CommonName: "Coast Live Oak", ScientificName: "Quercus agrifolia", Inventory: 4}}, nil
}

func (f *fakeStore) UpdateTreeInventory(ctx context.Context, id int64, inventory int) (store.Tree, error) {
	if f.updateInventoryFn != nil {
		return f.updateInventoryFn(ctx, id, inventory)
	}
	return store.Tree{ID: id, Inventory: inventory}, nil
}

func (f *fakeStore) GetTree(ctx context.Context, id int64) (store.Tree, error) {
	if f.getTreeFn != nil {
		return f.getTreeFn(ctx, id)
	}
	return store.Tree{ID: id}, nil
}

func (f *fakeStore) SeedCatalog(ctx context.Context, neighborhoods []string, trees []store.TreeSeed) error {
	if f.seedCatalogFn != nil {
		return f.seedCatalogFn(ctx, neighborhoods, trees)
	}
	return nil
}

func (f *fakeStore) ListTreeRequests(context.Context, int64) ([]store.TreeRequestSummary, error) {
	return []store.TreeRequestSummary{}, nil
}

func (f *fakeStore) GetTreeRequestDetails(ctx context.Context, residentID, treeRequestID int64) (store.TreeRequestDetails, error) {
	if f.getTreeRequestDetailsFn != nil {
		return f.getTreeRequestDetailsFn(ctx, residentID, treeRequestID)
	}
	if f.owners[treeRequestID] != residentID {
		return store.TreeRequestDetails{}, store.ErrNotFound
	}
	return store.TreeRequestDetails{CommonName: "Coast Live Oak"}, nil
}

func (f *fakeStore) CreateTreeRequest(ctx context.Context, request store.NewTreeRequest) (int64, error) {
	if f.createTreeRequestFn != nil {
		return f.createTreeRequestFn(ctx, request)
	}
	return 1, nil
}

func (f *fakeStore) TreeRequestOwner(_ context.Context, treeRequestID int64) (int64, error) {
	owner, ok := f.owners[treeRequestID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return owner, nil
}

func (f *fakeStore) ListAllTreeRequests(context.Context) ([]store.AdminTreeRequest, error) {
	return []store.AdminTreeRequest{}, nil
}

func (f *fakeStore) GetAdminTreeRequestDetails(_ context.Context, treeRequestID int64) (store.AdminTreeRequestDetails, error) {
	if _, ok := f.owners[treeRequestID]; !ok {
		return store.AdminTreeRequestDetails{}, store.ErrNotFound
	}
	return store.AdminTreeRequestDetails{ID: treeRequestID, ResidentID: f.owners[treeRequestID]}, nil
}

func (f *fakeStore) SetTreeRequestApproval(ctx context.Context, treeRequestID int64, approved bool) error {
	if f.setApprovalFn != nil {
		return f.setApprovalFn(ctx, treeRequestID, approved)
	}
	return nil
}

func (f *fakeStore) UpdatePermitStatus(ctx context.Context, treeRequestID int64, status string) error {
	if f.updatePermitStatusFn != nil {
		return f.updatePermitStatusFn(ctx, treeRequestID, status)
	}
	return nil
}

func (f *fakeStore) StatusFacts(_ context.Context, treeRequestID int64) (lifecycle.Facts, error) {
	facts, ok := f.facts[treeRequestID]
	if !ok {
		return lifecycle.Facts{}, store.ErrNotFound
	}
	return facts, nil
}

func (f *fakeStore) RequestContact(ctx context.Context, treeRequestID int64) (store.RequestContact, error) {
	if f.requestContactFn != nil {
		return f.requestContactFn(ctx, treeRequestID)
	}
	return store.RequestContact{TreeRequestID: treeRequestID, Email: "ana@example.com", FirstName: "Ana", CommonName: "Coast Live Oak"}, nil
}

func (f *fakeStore) ScheduleVisit(ctx context.Context, visit store.NewVisit) (int64, error) {
	if f.scheduleVisitFn != nil {
		return f.scheduleVisitFn(ctx, visit)
	}
	return 1, nil
}

func (f *fakeStore) CancelVisit(context.Context, int64) error { return nil }
func (f *fakeStore) RecordVisitOutcome(context.Context, store.VisitOutcome) error { return nil }
func (f *fakeStore) VisitTreeRequest(context.Context, int64) (int64, error) { return 1, nil }
func (f *fakeStore) SchedulePlanting(context.Context, store.NewPlanting) (int64, error) {
	return 1, nil
}

func (f *fakeStore) CancelPlanting(ctx context.Context, eventID int64) error {
	if f.cancelPlantingFn != nil {
		return f.cancelPlantingFn(ctx, eventID)
	}
	return nil
}

func (f *fakeStore) AddOrgMemberToPlanting(context.Context, int64, int64) error { return nil }
func (f *fakeStore) AddVolunteerToPlanting(context.Context, int64, int64) error { return nil }
func (f *fakeStore) AddVolunteerToPlantingEvent(context.Context, int64, int64) error { return nil }

func (f *fakeStore) RecordPlantingOutcome(ctx context.Context, outcome store.PlantingOutcome) (store.PlantingOutcomeResult, error) {
	if f.recordPlantingFn != nil {
		return f.recordPlantingFn(ctx, outcome)
	}
	return store.PlantingOutcomeResult{TreeID: 1, InventoryDecreased: outcome.Successful}, nil
}

func (f *fakeStore) GetPlantingDetails(_ context.Context, eventID int64) (store.PlantingDetails, error) {
	return store.PlantingDetails{EventID: eventID}, nil
}

func (f *fakeStore) ListAvailableVolunteers(context.Context) ([]store.Person, error) {
	return []store.Person{}, nil
}

func (f *fakeStore) ListAvailableOrgMembers(context.Context) ([]store.Person, error) {
	return []store.Person{}, nil
}

func (f *fakeStore) CreateVolunteerApplication(ctx context.Context, residentID int64, notes string) error {
	if f.volunteerApplicationFn != nil {
		return f.volunteerApplicationFn(ctx, residentID, notes)
	}
	return nil
}

func (f *fakeStore) ListPendingVolunteerApplications(context.Context) ([]store.VolunteerApplication, error) {
	return []store.VolunteerApplication{}, nil
}

func (f *fakeStore) ApproveVolunteer(ctx context.Context, residentID int64) (store.Resident, error) {
	if f.approveVolunteerFn != nil {
		return f.approveVolunteerFn(ctx, residentID)
	}
	r, ok := f.residents[residentID]
	if !ok {
		return store.Resident{}, store.ErrNotFound
	}
	r.IsVolunteer = true
	f.residents[residentID] = r
	return r, nil
}

func (f *fakeStore) ReportTreeRequestsStatus(context.Context) ([]store.RequestStatusRow, error) {
	return []store.RequestStatusRow{}, nil
}

func (f *fakeStore) ReportTreesPlanted(ctx context.Context, neighborhood string) ([]store.TreesPlantedRow, error) {
	if f.treesPlantedFn != nil {
		return f.treesPlantedFn(ctx, neighborhood)
	}
	return []store.TreesPlantedRow{}, nil
}

func (f *fakeStore) ReportTreeSpeciesStatistics(context.Context) ([]store.SpeciesStatisticsRow, error) {
	return []store.SpeciesStatisticsRow{}, nil
}

func (f *fakeStore) ReportNeighborhoods(context.Context) ([]store.NeighborhoodReportRow, error) {
	return []store.NeighborhoodReportRow{}, nil
}

func (f *fakeStore) ReportVolunteerActivity(ctx context.Context, year int) ([]store.VolunteerActivityRow, error) {
	if f.volunteerActivityFn != nil {
		return f.volunteerActivityFn(ctx, year)
	}
	return []store.VolunteerActivityRow{}, nil
}

func (f *fakeStore) ReportOrgMemberActivity(context.Context, int) ([]store.OrgMemberActivityRow, error) {
	return []store.OrgMemberActivityRow{}, nil
}

func (f *fakeStore) ReportSpeciesByNeighborhood(context.Context, string) ([]store.SpeciesNeighborhoodRow, error) {
	return []store.SpeciesNeighborhoodRow{}, nil
}

func (f *fakeStore) ReportTreesBySize(ctx context.Context, bounds store.SizeBounds) ([]store.TreeSizeRow, error) {
	if f.treesBySizeFn != nil {
		return f.treesBySizeFn(ctx, bounds)
	}
	return []store.TreeSizeRow{}, nil
}

func (f *fakeStore) ReportVolunteerAttendance(context.Context) ([]store.VolunteerAttendanceRow, error) {
	return []store.VolunteerAttendanceRow{}, nil
}

var (
	residentAna = store.Resident{ID: 1, Email: "ana@example.com", FirstName: "Ana"}
	volunteerBo = store.Resident{ID: 2, Email: "bo@example.com", FirstName: "Bo", IsVolunteer: true}
	organizerCy = store.Resident{ID: 3, Email: "cy@example.com", FirstName: "Cy", IsOrganizationMember: true}
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  "test-secret-test-secret-test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
		CORSOrigin: "*",
	}
}

func newTestService(fs *fakeStore, deps Dependencies) *Service {
	return newService(testConfig(), fs, deps, zap.NewNop())
}

func tokenFor(t *testing.T, svc *Service, resident store.Resident) string {
	t.Helper()
	sess, err := svc.issueSession(context.Background(), resident)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return sess.Token
}
