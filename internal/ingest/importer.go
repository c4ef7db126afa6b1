// Package ingest loads daily sales from CSV and XLSX files into the sales store.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMalformed is returned when a file cannot be parsed as daily sales.
	ErrMalformed = errors.New("malformed sales file")
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006/01/02", "02/01/2006"}

// Report summarises one imported file.
type Report struct {
	File     string   `json:"file"`
	Rows     int      `json:"rows"`
	Upserted int      `json:"upserted"`
	Skipped  int      `json:"skipped"`
	Unknown  []string `json:"unknown_products,omitempty"`
}

// Invalidator drops derived data for a product whose sales changed.
type Invalidator interface {
	InvalidateProduct(ctx context.Context, productID int64) error
}

type Importer struct {
	products    repository.ProductRepository
	sales       repository.SalesRepository
	invalidator Invalidator
}

type Option func(*Importer)

// WithInvalidator makes the importer invalidate every product it writes
// sales for, such as cached forecasts.
func WithInvalidator(inv Invalidator) Option {
	return func(im *Importer) { im.invalidator = inv }
}

func NewImporter(products repository.ProductRepository, sales repository.SalesRepository, opts ...Option) *Importer {
	im := &Importer{products: products, sales: sales}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportFile imports a local CSV or XLSX file.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return im.Import(ctx, filepath.Base(path), f)
}

// Import parses r according to the extension of name and upserts every row.
// A malformed row fails the whole file before anything is written. Rows for
// unknown products are skipped and reported.
func (im *Importer) Import(ctx context.Context, name string, r io.Reader) (*Report, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		records, err = csvRecords(r)
	case ".xlsx":
		records, err = xlsxRecords(r)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrMalformed, err)
	}

	report, err := im.importRecords(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	report.File = name

	log.Info().
		Str("file", name).
		Int("rows", report.Rows).
		Int("upserted", report.Upserted).
		Int("skipped", report.Skipped).
		Msg("ingest: sales file imported")
	return report, nil
}

func csvRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

type columns struct {
	productID int
	sku       int
	date      int
	quantity  int
}

func mapHeader(header []string) (columns, error) {
	cols := columns{productID: -1, sku: -1, date: -1, quantity: -1}
	for i, raw := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))) {
		case "product_id":
			cols.productID = i
		case "sku":
			cols.sku = i
		case "date", "sale_date":
			cols.date = i
		case "quantity", "qty":
			cols.quantity = i
		}
	}

	switch {
	case cols.productID < 0 && cols.sku < 0:
		return cols, fmt.Errorf("%w: missing required column: product_id or sku", ErrMalformed)
	case cols.date < 0:
		return cols, fmt.Errorf("%w: missing required column: date", ErrMalformed)
	case cols.quantity < 0:
		return cols, fmt.Errorf("%w: missing required column: quantity", ErrMalformed)
	}
	return cols, nil
}

type saleKey struct {
	productID int64
	date      time.Time
}

func (im *Importer) importRecords(ctx context.Context, records [][]string) (*Report, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrMalformed)
	}
	cols, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}

	report := &Report{}
	bySKU := make(map[string]int64)
	unknown := make(map[string]struct{})
	latest := make(map[saleKey]int)
	var observations []domain.SalesObservation

	for i, record := range records[1:] {
		line := i + 2
		if blank(record) {
			continue
		}
		report.Rows++

		productID, ref, err := im.resolveProduct(ctx, record, cols, bySKU)
		if errors.Is(err, domain.ErrNotFound) {
			report.Skipped++
			if _, seen := unknown[ref]; !seen {
				unknown[ref] = struct{}{}
				report.Unknown = append(report.Unknown, ref)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := parseDate(cell(record, cols.date))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		qty, err := strconv.ParseFloat(cell(record, cols.quantity), 64)
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("%w: line %d: invalid quantity %q", ErrMalformed, line, cell(record, cols.quantity))
		}

		// Later rows for the same product and day replace earlier ones.
		key := saleKey{productID: productID, date: date}
		if idx, ok := latest[key]; ok {
			observations[idx].Quantity = qty
			continue
		}
		latest[key] = len(observations)
		observations = append(observations, domain.SalesObservation{ProductID: productID, Date: date, Quantity: qty})
	}

	if len(observations) == 0 {
		return report, nil
	}

	n, err := im.sales.UpsertObservations(ctx, observations)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert sales: %w", err)
	}
	report.Upserted = n
	im.invalidate(ctx, observations)
	return report, nil
}

func (im *Importer) invalidate(ctx context.Context, observations []domain.SalesObservation) {
	if im.invalidator == nil {
		return
	}
	seen := make(map[int64]struct{})
	for _, o := range observations {
		if _, ok := seen[o.ProductID]; ok {
			continue
		}
		seen[o.ProductID] = struct{}{}
		if err := im.invalidator.InvalidateProduct(ctx, o.ProductID); err != nil {
			log.Warn().Err(err).Int64("product_id", o.ProductID).Msg("ingest: failed to invalidate cached forecasts")
		}
	}
}

func (im *Importer) resolveProduct(ctx context.Context, record []string, cols columns, bySKU map[string]int64) (int64, string, error) {
	if cols.productID >= 0 {
		if raw := cell(record, cols.productID); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return 0, raw, fmt.Errorf("%w: invalid product_id %q", ErrMalformed, raw)
			}
			if _, err := im.products.GetProduct(ctx, id); err != nil {
				return 0, raw, err
			}
			return id, raw, nil
		}
	}

	sku := ""
	if cols.sku >= 0 {
		sku = cell(record, cols.sku)
	}
	if sku == "" {
		return 0, "", fmt.Errorf("%w: row has neither product_id nor sku", ErrMalformed)
	}
	if id, ok := bySKU[sku]; ok {
		return id, sku, nil
	}
	p, err := im.products.GetProductBySKU(ctx, sku)
	if err != nil {
		return 0, sku, err
	}
	bySKU[sku] = p.ID
	return p.ID, sku, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrMalformed, raw)
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
