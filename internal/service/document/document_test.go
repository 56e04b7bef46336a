package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/events"
	"github.com/arcmed/arcmed_backend/internal/metrics"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
	"github.com/arcmed/arcmed_backend/pkg/email"
	"github.com/arcmed/arcmed_backend/pkg/filecrypt"
	"github.com/arcmed/arcmed_backend/pkg/logs"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

const testKeyHex = "f0e1d2c3b4a5968778695a4b3c2d1e0ff0e1d2c3b4a5968778695a4b3c2d1e0f"

// memStore is an in-memory objstore.Store with cold-storage simulation.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	cold    map[string]objstore.RestoreState
}

func newMemStore() *memStore {
	return &memStore{
		objects: map[string][]byte{},
		cold:    map[string]objstore.RestoreState{},
	}
}

func missingKey(op, key string) error {
	return &objstore.Error{Kind: objstore.KindNotFound, Op: op, Key: key, Err: errors.New("no such object")}
}

func (m *memStore) put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

func (m *memStore) markCold(key string, state objstore.RestoreState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cold[key] = state
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.put(key, data)
	return nil
}

func (m *memStore) GetBytes(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, missingKey("get", key)
	}
	return data, nil
}

func (m *memStore) Head(_ context.Context, key string) (*objstore.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, missingKey("head", key)
	}
	info := &objstore.ObjectInfo{Size: int64(len(data)), LastModified: time.Now()}
	if state, cold := m.cold[key]; cold {
		info.IsCold = true
		info.RestoreState = state
	}
	return info, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) Copy(_ context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[srcKey]
	if !ok {
		return missingKey("copy", srcKey)
	}
	m.objects[dstKey] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.test/" + key, nil
}

func (m *memStore) InitiateRestore(_ context.Context, key string, _ objstore.RestoreTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cold[key]; !ok {
		return missingKey("restore", key)
	}
	// immediately readable; pollRestore timing is exercised, not S3's
	m.cold[key] = objstore.RestoreAvailable
	return nil
}

type memMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *memMailer) Send(_ context.Context, msg email.Message) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *memMailer) messages() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

type memPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (p *memPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

type fixture struct {
	svc    Service
	db     *gorm.DB
	store  *memStore
	box    *filecrypt.Box
	mailer *memMailer
	pub    *memPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	box, err := filecrypt.NewFromHex(testKeyHex)
	require.NoError(t, err)

	auth, err := authorize.NewFromRules([][2]string{
		{model.RolePlatformSuper, string(authorize.ActionFileServe)},
		{model.RolePlatformSuper, string(authorize.ActionFileRestore)},
		{model.RolePlatformSuper, string(authorize.ActionFileDeleteImmediate)},
		{model.RolePlatformSuper, string(authorize.ActionFileApproveDelete)},
		{model.RolePlatformSuper, string(authorize.ActionFileRejectDelete)},
		{model.RoleHospitalAdmin, string(authorize.ActionFileServe)},
		{model.RoleHospitalAdmin, string(authorize.ActionFileRestore)},
		{model.RoleHospitalAdmin, string(authorize.ActionFileRequestDownload)},
		{model.RoleHospitalAdmin, string(authorize.ActionFileDeleteImmediate)},
		{model.RoleHospitalAdmin, string(authorize.ActionFileApproveDelete)},
		{model.RoleHospitalAdmin, string(authorize.ActionFileHospitalApprove)},
		{model.RoleHospitalAdmin, string(authorize.ActionFileRejectDelete)},
		{model.RoleRecordsStaff, string(authorize.ActionFileServe)},
		{model.RoleRecordsStaff, string(authorize.ActionFileRequestDownload)},
		{model.RoleRecordsStaff, string(authorize.ActionFileRequestDelete)},
		{model.RoleUploader, string(authorize.ActionFileRequestDelete)},
	})
	require.NoError(t, err)

	discard := slog.New(slog.DiscardHandler)
	store := newMemStore()
	mailer := &memMailer{}
	pub := &memPublisher{}
	svc := New(db, store, box, auth, mailer, pub,
		audit.NewRecorder(db, &logs.AuditSet{Auth: discard, Activity: discard, System: discard}),
		metrics.New(), discard,
		Config{
			Bucket:                "archive-test",
			BackOffice:            "backoffice@arcmed.test",
			LegacyLayouts:         true,
			RestorePollInterval:   5 * time.Millisecond,
			RestorePollIterations: 10,
			DownloadRequestLimit:  3,
		})
	return &fixture{svc: svc, db: db, store: store, box: box, mailer: mailer, pub: pub}
}

func (f *fixture) seedHospital(t *testing.T) model.Hospital {
	t.Helper()
	h := model.Hospital{
		Name:         "City General",
		ContactEmail: uuid.NewString() + "@citygeneral.test",
	}
	require.NoError(t, f.db.Create(&h).Error)
	return h
}

// seedDraft creates a pipeline-completed draft whose sealed bytes sit at
// the draft key.
func (f *fixture) seedDraft(t *testing.T, h model.Hospital, plaintext []byte) model.File {
	t.Helper()
	discharge := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	p := model.Patient{
		HospitalID:    h.ID,
		MRD:           "MRD-" + uuid.NewString()[:6],
		Name:          "John Roe",
		DischargeDate: &discharge,
	}
	require.NoError(t, f.db.Create(&p).Error)

	sealed, err := f.box.Seal(plaintext)
	require.NoError(t, err)
	key := objstore.DraftKey(h.Name, p.MRD, objstore.RandomToken(), ".pdf")
	f.store.put(key, sealed)

	file := model.File{
		PatientID:    p.ID,
		HospitalID:   h.ID,
		OriginalName: "report.pdf",
		Status:       model.FileStatusDraft,
		Stage:        model.StageCompleted,
		Progress:     100,
		Key:          key,
		SizeBytes:    int64(len(sealed)),
		PageCount:    12,
		DeletionStep: model.DeletionNone,
	}
	require.NoError(t, f.db.Create(&file).Error)
	return file
}

func (f *fixture) seedConfirmed(t *testing.T, h model.Hospital, plaintext []byte) model.File {
	t.Helper()
	file := f.seedDraft(t, h, plaintext)
	got, err := f.svc.Confirm(context.Background(), scope.Caller{UserID: uuid.New(), Role: model.RolePlatformSuper}, file.ID)
	require.NoError(t, err)
	return *got
}

func adminCaller(h model.Hospital) scope.Caller {
	return scope.Caller{UserID: uuid.New(), Role: model.RoleHospitalAdmin, HospitalID: &h.ID}
}

func staffCaller(h model.Hospital) scope.Caller {
	return scope.Caller{UserID: uuid.New(), Role: model.RoleRecordsStaff, HospitalID: &h.ID}
}

func platformCaller() scope.Caller {
	return scope.Caller{UserID: uuid.New(), Role: model.RolePlatformSuper}
}

func TestConfirmMovesDraftToFinal(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedDraft(t, h, []byte("scanned report"))
	draftKey := file.Key
	ctx := context.Background()

	got, err := f.svc.Confirm(ctx, adminCaller(h), file.ID)
	require.NoError(t, err)
	require.Equal(t, model.FileStatusConfirmed, got.Status)

	// final key is partitioned by the discharge date
	require.True(t, strings.HasPrefix(got.Key, "City_General/2024/03/"), "key = %q", got.Key)
	require.True(t, strings.HasSuffix(got.Key, ".enc"))
	require.Equal(t, objstore.TokenFromKey(draftKey), objstore.TokenFromKey(got.Key))

	require.True(t, f.store.has(got.Key), "final object must exist")
	require.False(t, f.store.has(draftKey), "draft object must be gone")

	require.Equal(t, []string{events.SubjectFileConfirmed}, f.pub.subjects)
	evt, err := events.ParseFileConfirmed(f.pub.payloads[0])
	require.NoError(t, err)
	require.Equal(t, file.ID, evt.FileID)
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	confirmed := f.seedConfirmed(t, h, []byte("x"))

	again, err := f.svc.Confirm(context.Background(), adminCaller(h), confirmed.ID)
	require.NoError(t, err)
	require.Equal(t, confirmed.Key, again.Key)
	require.Len(t, f.pub.subjects, 1, "no second event on re-confirm")
}

func TestConfirmIncompletePipeline(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)

	p := model.Patient{HospitalID: h.ID, MRD: "M1", Name: "p"}
	require.NoError(t, f.db.Create(&p).Error)
	file := model.File{
		PatientID: p.ID, HospitalID: h.ID,
		Status: model.FileStatusDraft, Stage: model.StageEncrypting, Progress: 60,
		DeletionStep: model.DeletionNone,
	}
	require.NoError(t, f.db.Create(&file).Error)

	_, err := f.svc.Confirm(context.Background(), adminCaller(h), file.ID)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestConfirmFindsLegacyDraftLayout(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedDraft(t, h, []byte("old layout"))

	// move the object to the historical prefix, as found in live buckets
	legacyKey := "draft/" + strings.TrimPrefix(file.Key, objstore.DraftPrefix)
	data, err := f.store.GetBytes(context.Background(), file.Key)
	require.NoError(t, err)
	f.store.put(legacyKey, data)
	require.NoError(t, f.store.Delete(context.Background(), file.Key))

	got, err := f.svc.Confirm(context.Background(), adminCaller(h), file.ID)
	require.NoError(t, err)
	require.Equal(t, model.FileStatusConfirmed, got.Status)
	require.False(t, f.store.has(legacyKey))
}

func TestServeDecryptsConfirmedFile(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	plaintext := []byte("%PDF-1.4 full report body")
	file := f.seedConfirmed(t, h, plaintext)

	res, err := f.svc.Serve(context.Background(), staffCaller(h), file.ID)
	require.NoError(t, err)
	require.Equal(t, plaintext, res.Content)
	require.Equal(t, "report.pdf", res.FileName)
	require.Equal(t, "application/pdf", res.ContentType)
}

func TestServeDraftRejected(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedDraft(t, h, []byte("x"))

	_, err := f.svc.Serve(context.Background(), staffCaller(h), file.ID)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestServeColdObject(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedConfirmed(t, h, []byte("frozen"))
	f.store.markCold(file.Key, objstore.RestoreNone)

	_, err := f.svc.Serve(context.Background(), staffCaller(h), file.ID)
	require.True(t, apperr.IsKind(err, apperr.KindColdStorage), "got %v", err)

	// once restored, serving works again
	f.store.markCold(file.Key, objstore.RestoreAvailable)
	res, err := f.svc.Serve(context.Background(), staffCaller(h), file.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("frozen"), res.Content)
}

func TestRestoreEmailsWhenReady(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	plaintext := []byte("thawed report")
	file := f.seedConfirmed(t, h, plaintext)
	f.store.markCold(file.Key, objstore.RestoreNone)

	require.NoError(t, f.svc.Restore(context.Background(), adminCaller(h), file.ID, objstore.TierExpedited))
	f.svc.Wait()

	msgs := f.mailer.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, []string{h.ContactEmail}, msgs[0].To)
	require.Len(t, msgs[0].Attachments, 1)
	require.Equal(t, plaintext, msgs[0].Attachments[0].Content)
}

func TestRestoreWarmObjectIsNoop(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedConfirmed(t, h, []byte("warm"))

	require.NoError(t, f.svc.Restore(context.Background(), adminCaller(h), file.ID, objstore.TierStandard))
	f.svc.Wait()
	require.Empty(t, f.mailer.messages())
}

func TestRequestDownloadCap(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedConfirmed(t, h, []byte("wanted"))
	ctx := context.Background()
	staff := staffCaller(h)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.RequestDownload(ctx, staff, file.ID))
	}
	err := f.svc.RequestDownload(ctx, staff, file.ID)
	require.True(t, apperr.IsKind(err, apperr.KindQuotaExceeded), "got %v", err)

	// platform callers bypass the cap and leave the counter alone
	require.NoError(t, f.svc.RequestDownload(ctx, platformCaller(), file.ID))

	var got model.File
	require.NoError(t, f.db.First(&got, "id = ?", file.ID).Error)
	require.Equal(t, 3, got.DownloadRequests)

	msgs := f.mailer.messages()
	require.Len(t, msgs, 4)
	require.Equal(t, []string{"backoffice@arcmed.test"}, msgs[0].To)
	require.Equal(t, []string{h.ContactEmail}, msgs[0].CC)
}

func TestDiscardDraft(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedDraft(t, h, []byte("mistake"))
	ctx := context.Background()

	// any role of the owning tenant may discard a draft
	uploader := scope.Caller{UserID: uuid.New(), Role: model.RoleUploader, HospitalID: &h.ID}
	require.NoError(t, f.svc.DiscardDraft(ctx, uploader, file.ID))
	require.False(t, f.store.has(file.Key))

	err := f.db.First(&model.File{}, "id = ?", file.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDiscardConfirmedRejected(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedConfirmed(t, h, []byte("x"))

	err := f.svc.DiscardDraft(context.Background(), adminCaller(h), file.ID)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestDeletionWorkflow(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedConfirmed(t, h, []byte("sensitive"))
	ctx := context.Background()
	staff := staffCaller(h)
	admin := adminCaller(h)

	// staff cannot delete outright
	err := f.svc.Delete(ctx, staff, file.ID)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// approve without a request conflicts
	err = f.svc.ApproveDeletion(ctx, admin, file.ID, false)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))

	require.NoError(t, f.svc.RequestDeletion(ctx, staff, file.ID))

	// a second request conflicts
	err = f.svc.RequestDeletion(ctx, staff, file.ID)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))

	var got model.File
	require.NoError(t, f.db.First(&got, "id = ?", file.ID).Error)
	require.Equal(t, model.DeletionRequested, got.DeletionStep)
	require.True(t, got.DeletionPending)

	// intermediate approval records the hospital's sign-off
	require.NoError(t, f.svc.ApproveDeletion(ctx, admin, file.ID, true))
	require.NoError(t, f.db.First(&got, "id = ?", file.ID).Error)
	require.Equal(t, model.DeletionHospitalApproved, got.DeletionStep)

	// final approval purges object and row
	require.NoError(t, f.svc.ApproveDeletion(ctx, admin, file.ID, false))
	require.False(t, f.store.has(file.Key))
	err = f.db.First(&model.File{}, "id = ?", file.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRequestDeletionByUploader(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedConfirmed(t, h, []byte("sensitive"))
	ctx := context.Background()

	uploader := scope.Caller{UserID: uuid.New(), Role: model.RoleUploader, HospitalID: &h.ID}
	require.NoError(t, f.svc.RequestDeletion(ctx, uploader, file.ID))

	var got model.File
	require.NoError(t, f.db.First(&got, "id = ?", file.ID).Error)
	require.Equal(t, model.DeletionRequested, got.DeletionStep)
}

func TestRejectDeletionClearsRequest(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedConfirmed(t, h, []byte("kept"))
	ctx := context.Background()

	require.NoError(t, f.svc.RequestDeletion(ctx, staffCaller(h), file.ID))
	require.NoError(t, f.svc.RejectDeletion(ctx, adminCaller(h), file.ID))

	var got model.File
	require.NoError(t, f.db.First(&got, "id = ?", file.ID).Error)
	require.Equal(t, model.DeletionNone, got.DeletionStep)
	require.False(t, got.DeletionPending)
	require.True(t, f.store.has(file.Key), "rejecting keeps the object")

	// nothing left to reject
	err := f.svc.RejectDeletion(ctx, adminCaller(h), file.ID)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestCrossTenantFileHidden(t *testing.T) {
	f := newFixture(t)
	h := f.seedHospital(t)
	file := f.seedConfirmed(t, h, []byte("private"))

	other := f.seedHospital(t)
	_, err := f.svc.Serve(context.Background(), adminCaller(other), file.ID)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound), "cross-tenant access must look like not-found, got %v", err)
}
