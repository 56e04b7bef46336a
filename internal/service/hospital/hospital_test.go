package hospital

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	auth, err := authorize.NewFromRules([][2]string{
		{model.RolePlatformSuper, string(authorize.ActionHospitalManage)},
	})
	require.NoError(t, err)

	return New(db, auth, slog.New(slog.DiscardHandler)), db
}

func platformCaller() scope.Caller {
	return scope.Caller{UserID: uuid.New(), Role: model.RolePlatformSuper}
}

func TestCreateAndDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	h, err := svc.Create(ctx, platformCaller(), CreateRequest{
		Name: "Lakeside", ContactEmail: "admin@lakeside.test",
		BasePrice: 100, IncludedPages: 20, ExtraPagePrice: 1, RegistrationFee: 500,
	})
	require.NoError(t, err)
	require.True(t, h.IsActive)
	require.False(t, h.RegistrationFeePaid)

	_, err = svc.Create(ctx, platformCaller(), CreateRequest{
		Name: "Other", ContactEmail: "admin@lakeside.test",
	})
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestCreateRequiresPlatformRole(t *testing.T) {
	svc, _ := newTestService(t)
	hid := uuid.New()
	admin := scope.Caller{UserID: uuid.New(), Role: model.RoleHospitalAdmin, HospitalID: &hid}

	_, err := svc.Create(context.Background(), admin, CreateRequest{
		Name: "Rogue", ContactEmail: "r@test",
	})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestTenantVisibility(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, platformCaller(), CreateRequest{Name: "A", ContactEmail: "a@test"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, platformCaller(), CreateRequest{Name: "B", ContactEmail: "b@test"})
	require.NoError(t, err)

	admin := scope.Caller{UserID: uuid.New(), Role: model.RoleHospitalAdmin, HospitalID: &a.ID}

	got, err := svc.Get(ctx, admin, a.ID)
	require.NoError(t, err)
	require.Equal(t, "A", got.Name)

	_, err = svc.Get(ctx, admin, b.ID)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))

	list, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSetPricingLeavesSnapshotsAlone(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	h, err := svc.Create(ctx, platformCaller(), CreateRequest{
		Name: "A", ContactEmail: "a@test", BasePrice: 100, IncludedPages: 20, ExtraPagePrice: 1,
	})
	require.NoError(t, err)

	p := model.Patient{HospitalID: h.ID, MRD: "1", Name: "x"}
	require.NoError(t, db.Create(&p).Error)
	f := model.File{
		PatientID: p.ID, HospitalID: h.ID,
		Status: model.FileStatusConfirmed, Stage: model.StageCompleted,
		BasePrice: 100, IncludedPages: 20, ExtraPagePrice: 1,
		DeletionStep: model.DeletionNone,
	}
	require.NoError(t, db.Create(&f).Error)

	require.NoError(t, svc.SetPricing(ctx, platformCaller(), h.ID, model.Pricing{
		BasePrice: 200, IncludedPages: 10, ExtraPagePrice: 2,
	}))

	var gotH model.Hospital
	require.NoError(t, db.First(&gotH, "id = ?", h.ID).Error)
	require.Equal(t, 200.0, gotH.BasePrice)

	var gotF model.File
	require.NoError(t, db.First(&gotF, "id = ?", f.ID).Error)
	require.Equal(t, 100.0, gotF.BasePrice, "snapshotted pricing must not change")
}

func TestProposeApproveRejectUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	h, err := svc.Create(ctx, platformCaller(), CreateRequest{Name: "Old Name", ContactEmail: "old@test"})
	require.NoError(t, err)
	admin := scope.Caller{UserID: uuid.New(), Role: model.RoleHospitalAdmin, HospitalID: &h.ID}

	// nothing to approve yet
	_, err = svc.ApproveUpdate(ctx, platformCaller(), h.ID)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))

	require.NoError(t, svc.ProposeUpdate(ctx, admin, h.ID, ProfileUpdate{Name: "New Name"}))

	// tenant admins cannot approve their own proposal
	_, err = svc.ApproveUpdate(ctx, admin, h.ID)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))

	got, err := svc.ApproveUpdate(ctx, platformCaller(), h.ID)
	require.NoError(t, err)
	require.Equal(t, "New Name", got.Name)
	require.Empty(t, got.PendingUpdate)

	// reject path clears without applying
	require.NoError(t, svc.ProposeUpdate(ctx, admin, h.ID, ProfileUpdate{ContactEmail: "new@test"}))
	require.NoError(t, svc.RejectUpdate(ctx, platformCaller(), h.ID))

	final, err := svc.Get(ctx, platformCaller(), h.ID)
	require.NoError(t, err)
	require.Equal(t, "old@test", final.ContactEmail)
	require.Empty(t, final.PendingUpdate)
}
