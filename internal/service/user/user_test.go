package user

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
	"github.com/arcmed/arcmed_backend/pkg/password"
)

var fastParams = &password.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

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
		{model.RolePlatformSuper, string(authorize.ActionUserManage)},
		{model.RoleHospitalAdmin, string(authorize.ActionUserManage)},
	})
	require.NoError(t, err)

	return New(db, auth, fastParams, slog.New(slog.DiscardHandler)), db
}

func platformCaller() scope.Caller {
	return scope.Caller{UserID: uuid.New(), Role: model.RolePlatformSuper}
}

func adminFor(hospitalID uuid.UUID) scope.Caller {
	return scope.Caller{UserID: uuid.New(), Role: model.RoleHospitalAdmin, HospitalID: &hospitalID}
}

func TestCreateNormalizesLegacyRoles(t *testing.T) {
	svc, _ := newTestService(t)

	u, err := svc.Create(context.Background(), platformCaller(), CreateRequest{
		Email: "Boss@Platform.Test", Password: "secret", Role: "superadmin",
	})
	require.NoError(t, err)
	require.Equal(t, model.RolePlatformSuper, u.Role)
	require.Equal(t, "boss@platform.test", u.Email)
	require.True(t, u.ForcePasswordChange)

	_, err = svc.Create(context.Background(), platformCaller(), CreateRequest{
		Email: "w@test", Password: "x", Role: "warehouse_manager",
	})
	require.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestPlatformTenantInvariant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	hid := uuid.New()

	// platform role with a hospital is invalid
	_, err := svc.Create(ctx, platformCaller(), CreateRequest{
		Email: "a@test", Password: "x", Role: model.RolePlatformStaff, HospitalID: &hid,
	})
	require.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	// tenant role without a hospital is invalid
	_, err = svc.Create(ctx, platformCaller(), CreateRequest{
		Email: "b@test", Password: "x", Role: model.RoleUploader,
	})
	require.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestTenantAdminScoping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mine := uuid.New()
	other := uuid.New()
	admin := adminFor(mine)

	// hospital id in the request is ignored for tenant admins
	u, err := svc.Create(ctx, admin, CreateRequest{
		Email: "staff@test", Password: "x", Role: model.RoleRecordsStaff, HospitalID: &other,
	})
	require.NoError(t, err)
	require.Equal(t, mine, *u.HospitalID)

	// and they cannot mint platform accounts
	_, err = svc.Create(ctx, admin, CreateRequest{
		Email: "evil@test", Password: "x", Role: model.RolePlatformSuper,
	})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	hid := uuid.New()

	_, err := svc.Create(ctx, platformCaller(), CreateRequest{
		Email: "dup@test", Password: "x", Role: model.RoleUploader, HospitalID: &hid,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, platformCaller(), CreateRequest{
		Email: "DUP@test", Password: "x", Role: model.RoleUploader, HospitalID: &hid,
	})
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestListHidesPlatformUsersFromTenants(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	hid := uuid.New()

	_, err := svc.Create(ctx, platformCaller(), CreateRequest{
		Email: "root@test", Password: "x", Role: model.RolePlatformSuper,
	})
	require.NoError(t, err)
	staff, err := svc.Create(ctx, platformCaller(), CreateRequest{
		Email: "staff@test", Password: "x", Role: model.RoleRecordsStaff, HospitalID: &hid,
	})
	require.NoError(t, err)

	tenantView, err := svc.List(ctx, adminFor(hid))
	require.NoError(t, err)
	require.Len(t, tenantView, 1)
	require.Equal(t, staff.ID, tenantView[0].ID)

	platformView, err := svc.List(ctx, platformCaller())
	require.NoError(t, err)
	require.Len(t, platformView, 2)
}

func TestSetActive(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	hid := uuid.New()
	caller := platformCaller()

	u, err := svc.Create(ctx, caller, CreateRequest{
		Email: "t@test", Password: "x", Role: model.RoleUploader, HospitalID: &hid,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, caller, u.ID, false))
	var got model.User
	require.NoError(t, db.First(&got, "id = ?", u.ID).Error)
	require.False(t, got.IsActive)

	// self-deactivation is rejected
	self := scope.Caller{UserID: u.ID, Role: model.RolePlatformSuper}
	err = svc.SetActive(ctx, self, u.ID, false)
	require.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}
