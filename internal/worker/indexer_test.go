package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/events"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/textextract"
	"github.com/arcmed/arcmed_backend/pkg/filecrypt"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}

func (s *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.put(key, data)
	return nil
}

func (s *memStore) GetBytes(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, &objstore.Error{Kind: objstore.KindNotFound, Op: "get", Key: key}
	}
	return data, nil
}

func (s *memStore) Head(_ context.Context, key string) (*objstore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, &objstore.Error{Kind: objstore.KindNotFound, Op: "head", Key: key}
	}
	return &objstore.ObjectInfo{Size: int64(len(data))}, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) Copy(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[src]
	if !ok {
		return &objstore.Error{Kind: objstore.KindNotFound, Op: "copy", Key: src}
	}
	s.objects[dst] = data
	return nil
}

func (s *memStore) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

func (s *memStore) InitiateRestore(context.Context, string, objstore.RestoreTier) error {
	return nil
}

// ocrRunner plays ghostscript and tesseract: page renders succeed and
// every page reads as the same canned text.
type ocrRunner struct {
	text string
}

func (r ocrRunner) Run(_ context.Context, command string, _ ...string) (string, string, error) {
	if command == "tesseract" {
		return r.text, "", nil
	}
	return "", "", nil
}

func newIndexerFixture(t *testing.T, ocrText string) (*Indexer, *gorm.DB, *memStore, *filecrypt.Box) {
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

	discard := slog.New(slog.DiscardHandler)
	extractor := textextract.NewWithRunner(discard, ocrRunner{text: ocrText}, true, true)
	store := newMemStore()
	ix := NewIndexer(db, store, box, extractor, discard, t.TempDir())
	return ix, db, store, box
}

func seedConfirmed(t *testing.T, db *gorm.DB, store *memStore, box *filecrypt.Box, name string, pages int) model.File {
	t.Helper()

	h := model.Hospital{Name: "H", ContactEmail: uuid.NewString() + "@h.test"}
	require.NoError(t, db.Create(&h).Error)
	p := model.Patient{HospitalID: h.ID, MRD: uuid.NewString()[:8], Name: "p"}
	require.NoError(t, db.Create(&p).Error)

	key := "H/2024/03/" + uuid.NewString() + ".enc"
	sealed, err := box.Seal([]byte("not a real pdf body"))
	require.NoError(t, err)
	store.put(key, sealed)

	f := model.File{
		PatientID: p.ID, HospitalID: h.ID,
		Key: key, OriginalName: name, PageCount: pages,
		Status: model.FileStatusConfirmed, Stage: model.StageCompleted,
		DeletionStep: model.DeletionNone,
	}
	require.NoError(t, db.Create(&f).Error)
	return f
}

func TestIndexPersistsTextAndTags(t *testing.T) {
	ix, db, store, box := newIndexerFixture(t,
		"DISCHARGE SUMMARY\nCondition at discharge: stable.\nFollow up in two weeks.")
	f := seedConfirmed(t, db, store, box, "record.pdf", 2)

	require.NoError(t, ix.Index(context.Background(), events.FileConfirmed{FileID: f.ID}))

	var got model.File
	require.NoError(t, db.First(&got, "id = ?", f.ID).Error)
	require.True(t, got.Searchable)
	require.Contains(t, got.OCRText, "DISCHARGE SUMMARY")
	require.Contains(t, got.Tags, textextract.TagDischargeSummary)
	require.Contains(t, got.Tags, textextract.TagConsultation)
}

func TestIndexLeavesUnreadableFileUnsearchable(t *testing.T) {
	// OCR yields nothing and the body is not digitally extractable.
	ix, db, store, box := newIndexerFixture(t, "")
	f := seedConfirmed(t, db, store, box, "scan.pdf", 1)

	require.NoError(t, ix.Index(context.Background(), events.FileConfirmed{FileID: f.ID}))

	var got model.File
	require.NoError(t, db.First(&got, "id = ?", f.ID).Error)
	require.False(t, got.Searchable)
	require.Empty(t, got.Tags)
}

func TestIndexSkipsNonPDF(t *testing.T) {
	ix, db, store, box := newIndexerFixture(t, "some text")
	f := seedConfirmed(t, db, store, box, "photo.jpg", 0)

	require.NoError(t, ix.Index(context.Background(), events.FileConfirmed{FileID: f.ID}))

	var got model.File
	require.NoError(t, db.First(&got, "id = ?", f.ID).Error)
	require.False(t, got.Searchable)
	require.Empty(t, got.OCRText)
}

func TestIndexSkipsDrafts(t *testing.T) {
	ix, db, store, box := newIndexerFixture(t, "some text")
	f := seedConfirmed(t, db, store, box, "record.pdf", 1)
	require.NoError(t, db.Model(&model.File{}).Where("id = ?", f.ID).
		Update("status", model.FileStatusDraft).Error)

	require.NoError(t, ix.Index(context.Background(), events.FileConfirmed{FileID: f.ID}))

	var got model.File
	require.NoError(t, db.First(&got, "id = ?", f.ID).Error)
	require.False(t, got.Searchable)
}

func TestIndexToleratesMissingRow(t *testing.T) {
	ix, _, _, _ := newIndexerFixture(t, "")
	require.NoError(t, ix.Index(context.Background(), events.FileConfirmed{FileID: uuid.New()}))
}

func TestIndexReportsMissingObject(t *testing.T) {
	ix, db, store, box := newIndexerFixture(t, "")
	f := seedConfirmed(t, db, store, box, "record.pdf", 1)
	require.NoError(t, store.Delete(context.Background(), f.Key))

	require.Error(t, ix.Index(context.Background(), events.FileConfirmed{FileID: f.ID}))
}
