package ingest

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProductReport summarises a product master import.
type ProductReport struct {
	File     string `json:"file"`
	Rows     int    `json:"rows"`
	Upserted int    `json:"upserted"`
}

// ImportProducts upserts products keyed by SKU. Required columns are sku and
// lead_time_days; name, category, current_stock, unit_cost, safety_stock_floor
// and safety_stock_multiplier are optional.
func (im *Importer) ImportProducts(ctx context.Context, name string, r io.Reader) (*ProductReport, error) {
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
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w: file is empty", name, ErrMalformed)
	}

	index := make(map[string]int)
	for i, col := range records[0] {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	for _, required := range []string{"sku", "lead_time_days"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%s: %w: missing required column: %s", name, ErrMalformed, required)
		}
	}
	get := func(record []string, col string) string {
		idx, ok := index[col]
		if !ok {
			return ""
		}
		return cell(record, idx)
	}

	products := make([]domain.Product, 0, len(records)-1)
	for i, record := range records[1:] {
		if blank(record) {
			continue
		}
		p, err := parseProduct(record, get)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: line %d: %v", name, ErrMalformed, i+2, err)
		}
		products = append(products, p)
	}

	report := &ProductReport{File: name, Rows: len(products)}
	for i := range products {
		if _, err := im.products.UpsertProduct(ctx, &products[i]); err != nil {
			return report, fmt.Errorf("failed to upsert product %s: %w", products[i].SKU, err)
		}
		report.Upserted++
	}

	log.Info().Str("file", name).Int("products", report.Upserted).Msg("ingest: products imported")
	return report, nil
}

func parseProduct(record []string, get func([]string, string) string) (domain.Product, error) {
	p := domain.Product{
		SKU:      get(record, "sku"),
		Name:     get(record, "name"),
		Category: get(record, "category"),
	}
	if p.SKU == "" {
		return p, fmt.Errorf("sku is empty")
	}

	var err error
	if p.LeadTimeDays, err = strconv.Atoi(get(record, "lead_time_days")); err != nil || p.LeadTimeDays < 0 {
		return p, fmt.Errorf("invalid lead_time_days %q", get(record, "lead_time_days"))
	}
	if raw := get(record, "current_stock"); raw != "" {
		if p.CurrentStock, err = strconv.Atoi(raw); err != nil || p.CurrentStock < 0 {
			return p, fmt.Errorf("invalid current_stock %q", raw)
		}
	}
	if raw := get(record, "unit_cost"); raw != "" {
		if p.UnitCost, err = decimal.NewFromString(raw); err != nil || p.UnitCost.IsNegative() {
			return p, fmt.Errorf("invalid unit_cost %q", raw)
		}
	}
	if raw := get(record, "safety_stock_floor"); raw != "" {
		if p.SafetyStockFloor, err = strconv.ParseFloat(raw, 64); err != nil || p.SafetyStockFloor < 0 {
			return p, fmt.Errorf("invalid safety_stock_floor %q", raw)
		}
	}
	if raw := get(record, "safety_stock_multiplier"); raw != "" {
		m, err := strconv.ParseFloat(raw, 64)
		if err != nil || m < 0 {
			return p, fmt.Errorf("invalid safety_stock_multiplier %q", raw)
		}
		p.SafetyStockMultiplier = &m
	}
	return p, nil
}
