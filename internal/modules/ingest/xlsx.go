package ingest

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/catalog"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names
const (
	EntitiesSheet = "Entities"
	PeriodsSheet  = "Periods"
)

var (
	entityColumns = []string{"id", "kind", "name", "region", "size_class", "manager"}
	periodColumns = []string{"entity_id", "period", "policy_count", "amount_due", "amount_collected"}
)

// XLSXSource reads batches from a workbook with an Entities and a Periods sheet.
// The first row of each sheet is a header naming the columns; column order is free.
type XLSXSource struct {
	path string
	log  zerolog.Logger
}

// NewXLSXSource creates a source reading the workbook at path
func NewXLSXSource(path string, log zerolog.Logger) *XLSXSource {
	return &XLSXSource{
		path: path,
		log:  log.With().Str("component", "xlsx_source").Logger(),
	}
}

// Name returns the source name
func (s *XLSXSource) Name() string {
	return "xlsx"
}

// Load parses the workbook
func (s *XLSXSource) Load(ctx context.Context) (catalog.Batch, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Batch{}, err
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return catalog.Batch{}, wrapSource(s.Name(), fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	a := newAssembler()

	entityRows, cols, err := readSheet(f, EntitiesSheet, entityColumns)
	if err != nil {
		return catalog.Batch{}, wrapSource(s.Name(), err)
	}
	for _, row := range entityRows {
		e := domain.Entity{
			ID:        cell(row, cols["id"]),
			Kind:      domain.EntityKind(strings.ToLower(cell(row, cols["kind"]))),
			Name:      cell(row, cols["name"]),
			Region:    cell(row, cols["region"]),
			SizeClass: cell(row, cols["size_class"]),
			Manager:   cell(row, cols["manager"]),
		}
		if err := a.addEntity(e); err != nil {
			return catalog.Batch{}, err
		}
	}

	periodRows, cols, err := readSheet(f, PeriodsSheet, periodColumns)
	if err != nil {
		return catalog.Batch{}, wrapSource(s.Name(), err)
	}
	for i, row := range periodRows {
		entityID := cell(row, cols["entity_id"])
		m := domain.PeriodMetrics{Period: cell(row, cols["period"])}

		if m.PolicyCount, err = parseInt(cell(row, cols["policy_count"])); err != nil {
			return catalog.Batch{}, rowError(entityID, m.Period, i, "policy_count", err)
		}
		if m.AmountDue, err = parseAmount(cell(row, cols["amount_due"])); err != nil {
			return catalog.Batch{}, rowError(entityID, m.Period, i, "amount_due", err)
		}
		if m.AmountCollected, err = parseAmount(cell(row, cols["amount_collected"])); err != nil {
			return catalog.Batch{}, rowError(entityID, m.Period, i, "amount_collected", err)
		}
		if err := a.addPeriod(entityID, m); err != nil {
			return catalog.Batch{}, err
		}
	}

	s.log.Debug().
		Str("path", s.path).
		Int("entities", len(entityRows)).
		Int("periods", len(periodRows)).
		Msg("Loaded batch from workbook")
	return a.batch(s.Name()), nil
}

// readSheet returns the non-empty data rows of a sheet and the index of each
// required column.
func readSheet(f *excelize.File, sheet string, required []string) ([][]string, map[string]int, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s has no header row", sheet)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("sheet %s is missing column %q", sheet, name)
		}
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		data = append(data, row)
	}
	return data, cols, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseInt(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := parseAmount(raw)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt64/2 {
		return 0, fmt.Errorf("%s is not a whole number", raw)
	}
	return int64(v), nil
}

func parseAmount(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s is not a finite number", raw)
	}
	return v, nil
}

func rowError(entityID, period string, row int, column string, err error) error {
	return &domain.ValidationError{
		EntityID: entityID,
		Period:   period,
		Reason:   fmt.Sprintf("row %d column %s: %v", row+2, column, err),
	}
}

// ExportXLSX writes batch as a workbook that XLSXSource can read back
func ExportXLSX(batch catalog.Batch, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(EntitiesSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", EntitiesSheet, err)
	}
	idx, err := f.NewSheet(PeriodsSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", PeriodsSheet, err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if err := writeRow(f, EntitiesSheet, 1, toRow(entityColumns)); err != nil {
		return err
	}
	if err := writeRow(f, PeriodsSheet, 1, toRow(periodColumns)); err != nil {
		return err
	}

	periodRow := 2
	for i, e := range batch.Entities {
		row := []interface{}{e.ID, string(e.Kind), e.Name, e.Region, e.SizeClass, e.Manager}
		if err := writeRow(f, EntitiesSheet, i+2, row); err != nil {
			return err
		}
		for _, m := range e.History {
			row := []interface{}{e.ID, m.Period, m.PolicyCount, m.AmountDue, m.AmountCollected}
			if err := writeRow(f, PeriodsSheet, periodRow, row); err != nil {
				return err
			}
			periodRow++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	ref, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, ref, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toRow(columns []string) []interface{} {
	out := make([]interface{}, len(columns))
	for i, c := range columns {
		out[i] = c
	}
	return out
}
