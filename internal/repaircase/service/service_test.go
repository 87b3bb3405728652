package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	attachmentdomain "github.com/macfixkou/repair-manager/internal/attachment/domain"
	attachmentrepo "github.com/macfixkou/repair-manager/internal/attachment/repository"
	authdomain "github.com/macfixkou/repair-manager/internal/auth/domain"
	"github.com/macfixkou/repair-manager/internal/clock"
	orgdomain "github.com/macfixkou/repair-manager/internal/organization/domain"
	"github.com/macfixkou/repair-manager/internal/orgcontext"
	"github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"github.com/macfixkou/repair-manager/internal/repaircase/repository"
	"github.com/macfixkou/repair-manager/internal/stall"
	"github.com/macfixkou/repair-manager/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeOrgs struct {
	thresholds map[snowflake.ID]stall.Thresholds
}

func (f *fakeOrgs) GetSettings(context.Context, snowflake.ID) (orgdomain.Settings, error) {
	return orgdomain.Settings{}, nil
}

func (f *fakeOrgs) UpdateSettings(context.Context, snowflake.ID, orgdomain.UpdateSettingsRequest) (orgdomain.Settings, error) {
	return orgdomain.Settings{}, nil
}

func (f *fakeOrgs) ResolveThresholds(_ context.Context, orgID snowflake.ID) (stall.Thresholds, error) {
	t, ok := f.thresholds[orgID]
	if !ok {
		return nil, orgdomain.ErrNotFound
	}
	return t, nil
}

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
}

func setup(t *testing.T) fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Case{}, &domain.StatusHistory{}, &attachmentdomain.Attachment{}, &authdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(testNow)
	svc := NewService(Params{
		DB:             conn,
		Log:            zaptest.NewLogger(t),
		GenID:          node,
		Clock:          fc,
		Repo:           repository.New(),
		AttachmentRepo: attachmentrepo.New(),
		OrgSvc: &fakeOrgs{thresholds: map[snowflake.ID]stall.Thresholds{
			1: stall.Defaults(),
			2: stall.Defaults(),
		}},
	})
	return fixture{svc: svc, db: conn, clock: fc}
}

func orgCtx(orgID snowflake.ID) context.Context {
	return orgcontext.WithPrincipal(context.Background(), orgcontext.Principal{UserID: 10, OrgID: orgID, Role: "owner"})
}

func strPtr(v string) *string { return &v }

func validCreate() domain.CreateCaseRequest {
	return domain.CreateCaseRequest{
		ReceivedAt:   "2024-05-09",
		CustomerName: "Tanaka",
		Manufacturer: "Nintendo",
		ModelNumber:  "HAC-001",
		Symptom:      "No power",
	}
}

func TestCreateDefaultsToIntakeAndRecordsHistory(t *testing.T) {
	f := setup(t)

	got, err := f.svc.Create(orgCtx(1), validCreate())
	require.NoError(t, err)

	assert.Len(t, got.ID, 26)
	assert.Equal(t, domain.StatusIntake, got.Status)
	assert.Equal(t, "受付", got.StatusLabel)
	assert.Equal(t, 1, got.AgeDays)
	assert.False(t, got.Stalled)
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, domain.StatusIntake, got.StatusHistory[0].Status)
	assert.Equal(t, testNow, got.StatusHistory[0].CreatedAt.UTC())
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)

	cases := []struct {
		name   string
		mutate func(*domain.CreateCaseRequest)
		want   error
	}{
		{"missing symptom", func(r *domain.CreateCaseRequest) { r.Symptom = "  " }, domain.ErrInvalidSymptom},
		{"bad received at", func(r *domain.CreateCaseRequest) { r.ReceivedAt = "yesterday" }, domain.ErrInvalidReceivedAt},
		{"no customer", func(r *domain.CreateCaseRequest) { r.CustomerName = "" }, domain.ErrInvalidCustomer},
		{"unknown status", func(r *domain.CreateCaseRequest) { r.Status = "LOST" }, domain.ErrInvalidStatus},
		{"unknown outcome", func(r *domain.CreateCaseRequest) { r.Outcome = "MAYBE" }, domain.ErrInvalidOutcome},
		{"unknown decision", func(r *domain.CreateCaseRequest) { r.FinalDecision = "KEEP" }, domain.ErrInvalidFinalDecision},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreate()
			tc.mutate(&req)
			_, err := f.svc.Create(orgCtx(1), req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateAcceptsContactWithoutName(t *testing.T) {
	f := setup(t)
	req := validCreate()
	req.CustomerName = ""
	req.CustomerContact = "090-0000-0000"

	got, err := f.svc.Create(orgCtx(1), req)
	require.NoError(t, err)
	assert.Equal(t, "090-0000-0000", got.CustomerContact)
}

func TestCreateWithoutOrganization(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Create(context.Background(), validCreate())
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestUpdateStatusChangeAppendsOneHistoryRow(t *testing.T) {
	f := setup(t)
	ctx := orgCtx(1)
	created, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	updated, err := f.svc.Update(ctx, created.ID, domain.UpdateCaseRequest{Status: strPtr("REPAIRING")})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRepairing, updated.Status)
	require.Len(t, updated.StatusHistory, 2)
	assert.Equal(t, domain.StatusRepairing, updated.StatusHistory[1].Status)
	assert.Equal(t, testNow.Add(time.Hour), updated.StatusHistory[1].CreatedAt.UTC())
}

func TestUpdateWithoutStatusChangeAppendsNothing(t *testing.T) {
	f := setup(t)
	ctx := orgCtx(1)
	created, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, created.ID, domain.UpdateCaseRequest{
		ModelName: strPtr("Switch"),
		Status:    strPtr("INTAKE"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Switch", updated.ModelName)
	assert.Equal(t, "Tanaka", updated.CustomerName)
	assert.Len(t, updated.StatusHistory, 1)
}

func TestUpdateClearsOptionalFields(t *testing.T) {
	f := setup(t)
	ctx := orgCtx(1)
	req := validCreate()
	req.Outcome = "SUCCESS"
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, created.Outcome)

	updated, err := f.svc.Update(ctx, created.ID, domain.UpdateCaseRequest{
		Outcome:      strPtr(""),
		Manufacturer: strPtr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Outcome)
	assert.Empty(t, updated.Manufacturer)
}

func TestUpdateRejections(t *testing.T) {
	f := setup(t)
	ctx := orgCtx(1)
	created, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, created.ID, domain.UpdateCaseRequest{})
	assert.ErrorIs(t, err, domain.ErrNoChanges)

	_, err = f.svc.Update(ctx, created.ID, domain.UpdateCaseRequest{CustomerName: strPtr("")})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = f.svc.Update(ctx, created.ID, domain.UpdateCaseRequest{Status: strPtr("LOST")})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.Update(orgCtx(2), created.ID, domain.UpdateCaseRequest{ModelName: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetIsScopedToOrganization(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(orgCtx(1), validCreate())
	require.NoError(t, err)

	_, err = f.svc.Get(orgCtx(2), created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.svc.Get(orgCtx(1), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Empty(t, got.Attachments)
}

func TestDeleteHidesCase(t *testing.T) {
	f := setup(t)
	ctx := orgCtx(1)
	created, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(orgCtx(2), created.ID), domain.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID), domain.ErrNotFound)

	res, err := f.svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, res.Cases)
}

func TestUpdateAfterDeleteIsNotFound(t *testing.T) {
	f := setup(t)
	ctx := orgCtx(1)
	created, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, created.ID))

	status := string(domain.StatusDiagnosing)
	_, err = f.svc.Update(ctx, created.ID, domain.UpdateCaseRequest{Status: &status})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.ShareExport(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var n int64
	require.NoError(t, f.db.Model(&domain.StatusHistory{}).Where("case_id = ?", created.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func addUser(t *testing.T, f fixture, id, orgID snowflake.ID) {
	t.Helper()
	require.NoError(t, f.db.Create(&authdomain.User{
		ID:        id,
		Subject:   fmt.Sprintf("sub-%d", id),
		OrgID:     orgID,
		Name:      "Staff",
		Email:     fmt.Sprintf("staff%d@example.com", id),
		Role:      authdomain.RoleMember,
		CreatedAt: testNow,
	}).Error)
}

func TestAssigneeMustBelongToOrganization(t *testing.T) {
	f := setup(t)
	ctx := orgCtx(1)
	addUser(t, f, 101, 1)
	addUser(t, f, 202, 2)

	foreign := snowflake.ID(202)
	req := validCreate()
	req.AssigneeUserID = &foreign
	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidAssignee)

	missing := snowflake.ID(999)
	req.AssigneeUserID = &missing
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidAssignee)

	var n int64
	require.NoError(t, f.db.Model(&domain.Case{}).Count(&n).Error)
	assert.Zero(t, n)

	local := snowflake.ID(101)
	req.AssigneeUserID = &local
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, created.AssigneeUserID)
	assert.Equal(t, local, *created.AssigneeUserID)

	_, err = f.svc.Update(ctx, created.ID, domain.UpdateCaseRequest{AssigneeUserID: &foreign})
	assert.ErrorIs(t, err, domain.ErrInvalidAssignee)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssigneeUserID)
	assert.Equal(t, local, *got.AssigneeUserID)

	unassign := snowflake.ID(0)
	updated, err := f.svc.Update(ctx, created.ID, domain.UpdateCaseRequest{AssigneeUserID: &unassign})
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeUserID)
}

func createAt(t *testing.T, f fixture, orgID snowflake.ID, receivedAt time.Time, mutate func(*domain.CreateCaseRequest)) domain.CaseDetail {
	t.Helper()
	req := validCreate()
	req.ReceivedAt = receivedAt.Format(time.RFC3339)
	if mutate != nil {
		mutate(&req)
	}
	got, err := f.svc.Create(orgCtx(orgID), req)
	require.NoError(t, err)
	return got
}

func ids(views []domain.CaseView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func TestListStalledOnlyKeepsOrder(t *testing.T) {
	f := setup(t)
	ctx := orgCtx(1)
	for i := 0; i < 10; i++ {
		status := "COMPLETED"
		if i%3 == 0 && i > 0 {
			status = "INTAKE"
		}
		createAt(t, f, 1, testNow.Add(-time.Duration(i)*24*time.Hour), func(r *domain.CreateCaseRequest) {
			r.Status = status
		})
	}

	all, err := f.svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all.Cases, 10)

	stalled, err := f.svc.List(ctx, domain.ListFilter{StalledOnly: true})
	require.NoError(t, err)
	require.Len(t, stalled.Cases, 3)

	var expected []string
	for _, c := range all.Cases {
		if c.Stalled {
			expected = append(expected, c.ID)
		}
	}
	assert.Equal(t, expected, ids(stalled.Cases))
	for _, c := range stalled.Cases {
		assert.Equal(t, c.AgeDays-2, c.StalledByDays)
	}
}

func TestListSortAndTenantIsolation(t *testing.T) {
	f := setup(t)
	older := createAt(t, f, 1, testNow.Add(-72*time.Hour), nil)
	newer := createAt(t, f, 1, testNow.Add(-24*time.Hour), nil)
	createAt(t, f, 2, testNow, nil)

	desc, err := f.svc.List(orgCtx(1), domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{newer.ID, older.ID}, ids(desc.Cases))
	assert.Equal(t, 2, desc.Thresholds[domain.StatusIntake])

	asc, err := f.svc.List(orgCtx(1), domain.ListFilter{Sort: domain.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{older.ID, newer.ID}, ids(asc.Cases))
}

func TestListSearch(t *testing.T) {
	f := setup(t)
	match := createAt(t, f, 1, testNow, func(r *domain.CreateCaseRequest) {
		r.CustomerName = "Suzuki Ichiro"
		r.ModelNumber = "CUH-2000"
	})
	other := createAt(t, f, 1, testNow, func(r *domain.CreateCaseRequest) {
		r.CustomerName = "Sato"
		r.Symptom = "Fan noise 50%"
	})

	for _, q := range []string{"suzuki", "cuh-2", match.ID} {
		res, err := f.svc.List(orgCtx(1), domain.ListFilter{Query: q})
		require.NoError(t, err)
		assert.Equal(t, []string{match.ID}, ids(res.Cases), q)
	}

	res, err := f.svc.List(orgCtx(1), domain.ListFilter{Query: "50%"})
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, ids(res.Cases))
}

func TestListStatusAndDateFilters(t *testing.T) {
	f := setup(t)
	day := func(d int) time.Time { return time.Date(2024, 5, d, 15, 0, 0, 0, time.UTC) }
	first := createAt(t, f, 1, day(1), nil)
	second := createAt(t, f, 1, day(3), func(r *domain.CreateCaseRequest) { r.Status = "REPAIRING" })
	createAt(t, f, 1, day(5), nil)

	res, err := f.svc.List(orgCtx(1), domain.ListFilter{From: "2024-05-01", To: "2024-05-03", Sort: domain.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, ids(res.Cases))

	res, err = f.svc.List(orgCtx(1), domain.ListFilter{Status: "REPAIRING"})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, ids(res.Cases))

	_, err = f.svc.List(orgCtx(1), domain.ListFilter{Status: "LOST"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = f.svc.List(orgCtx(1), domain.ListFilter{From: "05/01/2024"})
	assert.ErrorIs(t, err, domain.ErrInvalidFrom)
	_, err = f.svc.List(orgCtx(1), domain.ListFilter{To: "soon"})
	assert.ErrorIs(t, err, domain.ErrInvalidTo)
	_, err = f.svc.List(orgCtx(1), domain.ListFilter{Sort: "sideways"})
	assert.ErrorIs(t, err, domain.ErrInvalidSort)
}

func TestListCountsAttachments(t *testing.T) {
	f := setup(t)
	created := createAt(t, f, 1, testNow, nil)
	for i := 0; i < 2; i++ {
		require.NoError(t, f.db.Create(&attachmentdomain.Attachment{
			ID:        snowflake.ID(100 + i),
			CaseID:    created.ID,
			OrgID:     1,
			Type:      attachmentdomain.TypePhoto,
			FileName:  fmt.Sprintf("p%d.jpg", i),
			FilePath:  "http://example.test/p.jpg",
			MimeType:  "image/jpeg",
			Size:      10,
			CreatedAt: testNow,
		}).Error)
	}

	res, err := f.svc.List(orgCtx(1), domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Cases, 1)
	assert.Equal(t, int64(2), res.Cases[0].AttachmentsCount)

	got, err := f.svc.Get(orgCtx(1), created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Attachments, 2)
	assert.Equal(t, int64(2), got.AttachmentsCount)
}

func TestListUnknownOrganization(t *testing.T) {
	f := setup(t)
	_, err := f.svc.List(orgCtx(3), domain.ListFilter{})
	assert.ErrorIs(t, err, orgdomain.ErrNotFound)
}

func TestShareExport(t *testing.T) {
	f := setup(t)
	private := createAt(t, f, 1, testNow, nil)
	shared := createAt(t, f, 1, testNow, func(r *domain.CreateCaseRequest) {
		r.ShareAnonymously = true
		r.ShareNote = "capacitor swap"
		r.Outcome = "SUCCESS"
	})

	_, err := f.svc.ShareExport(orgCtx(1), private.ID)
	assert.ErrorIs(t, err, domain.ErrNotShareable)

	payload, err := f.svc.ShareExport(orgCtx(1), shared.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nintendo", payload.Device.Manufacturer)
	assert.Equal(t, "capacitor swap", payload.ShareNote)
	require.NotNil(t, payload.Result.Outcome)
	assert.Equal(t, domain.OutcomeSuccess, *payload.Result.Outcome)

	_, err = f.svc.ShareExport(orgCtx(2), shared.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryEditIsScoped(t *testing.T) {
	f := setup(t)
	ctx := orgCtx(1)
	a := createAt(t, f, 1, testNow, nil)
	b := createAt(t, f, 1, testNow, nil)
	historyID := a.StatusHistory[0].ID

	_, err := f.svc.UpdateHistory(ctx, b.ID, historyID, "REPAIRING")
	assert.ErrorIs(t, err, domain.ErrHistoryNotFound)
	_, err = f.svc.UpdateHistory(orgCtx(2), a.ID, historyID, "REPAIRING")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.UpdateHistory(ctx, a.ID, historyID, "LOST")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	updated, err := f.svc.UpdateHistory(ctx, a.ID, historyID, "REPAIRING")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRepairing, updated.Status)

	got, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIntake, got.Status)
	assert.Equal(t, domain.StatusRepairing, got.StatusHistory[0].Status)

	require.NoError(t, f.svc.DeleteHistory(ctx, a.ID, historyID))
	assert.ErrorIs(t, f.svc.DeleteHistory(ctx, a.ID, historyID), domain.ErrHistoryNotFound)

	got, err = f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.StatusHistory)
}
