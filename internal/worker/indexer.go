// Package worker hosts the background consumers driven by NATS events.
// The indexer listens for confirmed files and makes them searchable:
// download, decrypt, extract text, classify, persist.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/events"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/textextract"
	"github.com/arcmed/arcmed_backend/pkg/filecrypt"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

// indexTimeout bounds one file's extraction end to end, OCR included.
const indexTimeout = 10 * time.Minute

type Indexer struct {
	db        *gorm.DB
	store     objstore.Store
	box       *filecrypt.Box
	extractor *textextract.Extractor
	log       *slog.Logger
	tempDir   string

	sub *nats.Subscription
}

func NewIndexer(db *gorm.DB, store objstore.Store, box *filecrypt.Box,
	extractor *textextract.Extractor, log *slog.Logger, tempDir string) *Indexer {
	return &Indexer{
		db:        db,
		store:     store,
		box:       box,
		extractor: extractor,
		log:       log.With("component", "indexer"),
		tempDir:   tempDir,
	}
}

// Subscribe attaches the indexer to the file-confirmed subject. Queue
// subscription: one worker per event across all processes.
func (ix *Indexer) Subscribe(conn *nats.Conn) error {
	sub, err := conn.QueueSubscribe(events.SubjectFileConfirmed, "indexer", func(msg *nats.Msg) {
		evt, err := events.ParseFileConfirmed(msg.Data)
		if err != nil {
			ix.log.Error("bad file.confirmed payload", "error", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		defer cancel()
		if err := ix.Index(ctx, evt); err != nil {
			ix.log.Error("indexing failed", "file_id", evt.FileID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", events.SubjectFileConfirmed, err)
	}
	ix.sub = sub
	return nil
}

func (ix *Indexer) Close() {
	if ix.sub != nil {
		_ = ix.sub.Unsubscribe()
	}
}

// Index extracts and stores searchable text for one confirmed file.
// Extraction failures leave the file unsearchable, never unconfirmed.
func (ix *Indexer) Index(ctx context.Context, evt events.FileConfirmed) error {
	var file model.File
	err := ix.db.WithContext(ctx).Where("id = ?", evt.FileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// deleted between confirm and index
		return nil
	}
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}
	if file.Status != model.FileStatusConfirmed || file.Key == "" {
		return nil
	}
	if !strings.EqualFold(filepath.Ext(file.OriginalName), ".pdf") {
		return nil
	}

	ciphertext, err := ix.store.GetBytes(ctx, file.Key)
	if err != nil {
		return fmt.Errorf("fetch object: %w", err)
	}
	plaintext, err := ix.box.Open(ciphertext)
	if err != nil {
		return fmt.Errorf("decrypt object: %w", err)
	}

	tmp, err := os.CreateTemp(ix.tempDir, "index-*.pdf")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(plaintext); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	text := ix.extractor.Extract(ctx, tmp.Name(), file.PageCount)
	tags := textextract.Classify(text)

	updates := map[string]any{
		"ocr_text":   text,
		"tags":       textextract.JoinTags(tags),
		"searchable": strings.TrimSpace(text) != "",
	}
	if err := ix.db.WithContext(ctx).Model(&model.File{}).
		Where("id = ?", file.ID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("persist extraction: %w", err)
	}

	ix.log.Info("file indexed", "file_id", file.ID, "tags", len(tags), "chars", len(text))
	return nil
}
