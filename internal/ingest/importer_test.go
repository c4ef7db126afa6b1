package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newImporter(t *testing.T) (*Importer, *memory.Store, int64) {
	t.Helper()
	store := memory.NewStore()
	id, err := store.UpsertProduct(context.Background(), &domain.Product{SKU: "WID-1", Name: "Widget", LeadTimeDays: 3})
	require.NoError(t, err)
	return NewImporter(store, store), store, id
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

type invalidations struct {
	ids []int64
}

func (i *invalidations) InvalidateProduct(_ context.Context, productID int64) error {
	i.ids = append(i.ids, productID)
	return nil
}

func TestImportInvalidatesTouchedProducts(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	first, err := store.UpsertProduct(ctx, &domain.Product{SKU: "WID-1", Name: "Widget", LeadTimeDays: 3})
	require.NoError(t, err)
	second, err := store.UpsertProduct(ctx, &domain.Product{SKU: "WID-2", Name: "Gadget", LeadTimeDays: 3})
	require.NoError(t, err)
	_, err = store.UpsertProduct(ctx, &domain.Product{SKU: "WID-3", Name: "Idle", LeadTimeDays: 3})
	require.NoError(t, err)

	inv := &invalidations{}
	im := NewImporter(store, store, WithInvalidator(inv))
	csv := "sku,date,quantity\n" +
		"WID-1,2024-01-01,4\n" +
		"WID-2,2024-01-01,7\n" +
		"WID-1,2024-01-02,5\n" +
		"GHOST,2024-01-02,1\n"

	_, err = im.Import(ctx, "sales.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []int64{first, second}, inv.ids)

	inv.ids = nil
	_, err = im.Import(ctx, "bad.csv", strings.NewReader("sku,date,quantity\nWID-1,2024-01-03,-1\n"))
	require.ErrorIs(t, err, ErrMalformed)
	assert.Empty(t, inv.ids)
}

func TestImportCSVBySKUAndID(t *testing.T) {
	im, store, id := newImporter(t)
	csv := "sku,date,quantity\n" +
		"WID-1,2024-01-01,10\n" +
		"WID-1,2024-01-02,12.5\n" +
		"GHOST,2024-01-02,3\n" +
		"GHOST,2024-01-03,3\n" +
		",,\n"

	report, err := im.Import(context.Background(), "sales.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", report.File)
	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 2, report.Upserted)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, []string{"GHOST"}, report.Unknown)

	obs, err := store.ListObservations(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, day(1), obs[0].Date)
	assert.Equal(t, 12.5, obs[1].Quantity)

	byID := "product_id,date,quantity\n1,2024-01-02,20\n"
	_, err = im.Import(context.Background(), "fix.csv", strings.NewReader(byID))
	require.NoError(t, err)

	obs, err = store.ListObservations(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, 20.0, obs[1].Quantity)
}

func TestImportDuplicateRowsLastWins(t *testing.T) {
	im, store, id := newImporter(t)
	csv := "SKU,Date,Qty\nWID-1,2024-01-05,1\nWID-1,2024-01-05,7\n"

	report, err := im.Import(context.Background(), "dup.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Upserted)

	obs, err := store.ListObservations(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 7.0, obs[0].Quantity)
}

func TestImportRejectsMalformedFiles(t *testing.T) {
	cases := map[string]string{
		"missing date column": "sku,quantity\nWID-1,3\n",
		"missing product":     "date,quantity\n2024-01-01,3\n",
		"bad date":            "sku,date,quantity\nWID-1,yesterday,3\n",
		"negative quantity":   "sku,date,quantity\nWID-1,2024-01-01,-2\n",
		"bad quantity":        "sku,date,quantity\nWID-1,2024-01-01,many\n",
		"bad product id":      "product_id,date,quantity\nabc,2024-01-01,2\n",
		"empty":               "",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			im, store, id := newImporter(t)
			_, err := im.Import(context.Background(), "bad.csv", strings.NewReader(body))
			require.ErrorIs(t, err, ErrMalformed)

			obs, lerr := store.ListObservations(context.Background(), id)
			require.NoError(t, lerr)
			assert.Empty(t, obs)
		})
	}
}

func TestImportUnsupportedFormat(t *testing.T) {
	im, _, _ := newImporter(t)
	_, err := im.Import(context.Background(), "sales.json", strings.NewReader("{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImportXLSXFile(t *testing.T) {
	im, store, id := newImporter(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"sku", "date", "quantity"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"WID-1", "2024-01-01", 4}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"WID-1", "2024-01-02", 6}))

	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	report, err := im.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "sales.xlsx", report.File)
	assert.Equal(t, 2, report.Upserted)

	obs, err := store.ListObservations(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, 6.0, obs[1].Quantity)
}

func TestImportFileMissing(t *testing.T) {
	im, _, _ := newImporter(t)
	_, err := im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestImportProducts(t *testing.T) {
	store := memory.NewStore()
	im := NewImporter(store, store)
	csv := "sku,name,lead_time_days,current_stock,unit_cost,safety_stock_multiplier\n" +
		"A-1,Apple,3,25,1.25,\n" +
		"B-2,Banana,5,0,0.40,2.33\n"

	report, err := im.ImportProducts(context.Background(), "products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Upserted)

	p, err := store.GetProductBySKU(context.Background(), "B-2")
	require.NoError(t, err)
	assert.Equal(t, 5, p.LeadTimeDays)
	assert.Equal(t, "0.4", p.UnitCost.String())
	require.NotNil(t, p.SafetyStockMultiplier)
	assert.Equal(t, 2.33, *p.SafetyStockMultiplier)

	// Re-importing a SKU updates it in place.
	_, err = im.ImportProducts(context.Background(), "products.csv", strings.NewReader("sku,lead_time_days,current_stock\nA-1,4,90\n"))
	require.NoError(t, err)
	all, err := store.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 90, all[0].CurrentStock)
}

func TestImportProductsRejectsBadRows(t *testing.T) {
	store := memory.NewStore()
	im := NewImporter(store, store)

	_, err := im.ImportProducts(context.Background(), "p.csv", strings.NewReader("sku,lead_time_days\nA-1,soon\n"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = im.ImportProducts(context.Background(), "p.csv", strings.NewReader("name\nApple\n"))
	assert.ErrorIs(t, err, ErrMalformed)

	all, err := store.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
