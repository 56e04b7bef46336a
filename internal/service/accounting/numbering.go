package accounting

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arcmed/arcmed_backend/internal/model"
)

// nextNumber hands out the next voucher number for (fy, series) inside
// the caller's transaction: recycled slots first, then the counter.
// Row-level locking serializes concurrent generators.
func nextNumber(tx *gorm.DB, fy string, series model.Series) (value int, rendered string, err error) {
	var state model.NumberingState
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, "", ErrNumberingMissing
	}
	if err != nil {
		return 0, "", fmt.Errorf("load numbering state: %w", err)
	}

	prefix := state.PrefixFor(series)
	if prefix == "" {
		return 0, "", ErrUnknownSeries
	}

	// recycled slot, lowest value first
	var slot model.AvailableNumber
	err = tx.Where("fiscal_year = ? AND series = ?", fy, series).
		Order("value asc").
		First(&slot).Error
	switch {
	case err == nil:
		if err := tx.Delete(&slot).Error; err != nil {
			return 0, "", fmt.Errorf("consume recycled number: %w", err)
		}
		value = slot.Value
	case errors.Is(err, gorm.ErrRecordNotFound):
		value = state.CounterFor(series)
		if value < 1 {
			value = 1
		}
		state.SetCounterFor(series, value+1)
		if err := tx.Save(&state).Error; err != nil {
			return 0, "", fmt.Errorf("advance counter: %w", err)
		}
	default:
		return 0, "", fmt.Errorf("lookup recycled number: %w", err)
	}

	return value, RenderNumber(state.Format, prefix, fy, value), nil
}

// releaseNumber returns a voucher value to the recycling pool.
func releaseNumber(tx *gorm.DB, fy string, series model.Series, value int) error {
	if value < 1 {
		// explicit caller-supplied numbers carry no series value
		return nil
	}
	slot := model.AvailableNumber{FiscalYear: fy, Series: series, Value: value}
	if err := tx.Create(&slot).Error; err != nil {
		return fmt.Errorf("release number %d: %w", value, err)
	}
	return nil
}

// resetIfEmpty starts numbering over when the last invoice is gone:
// all counters back to 1, recycling pool cleared.
func resetIfEmpty(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&model.Invoice{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var state model.NumberingState
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&state).Error; err != nil {
		return err
	}
	for _, s := range []model.Series{model.SeriesGST, model.SeriesNonGST, model.SeriesReceipt, model.SeriesExpense} {
		state.SetCounterFor(s, 1)
	}
	if err := tx.Save(&state).Error; err != nil {
		return err
	}
	return tx.Where("1 = 1").Delete(&model.AvailableNumber{}).Error
}

// RenderNumber fills the {prefix}/{fy}/{number} template. Numbers are
// zero-padded to four digits, e.g. INV/25-26/0003.
func RenderNumber(format, prefix, fy string, value int) string {
	out := format
	out = strings.ReplaceAll(out, "{prefix}", prefix)
	out = strings.ReplaceAll(out, "{fy}", fy)
	out = strings.ReplaceAll(out, "{number}", fmt.Sprintf("%04d", value))
	return out
}
