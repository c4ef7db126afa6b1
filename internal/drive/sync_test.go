package drive

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/ingest"
	"github.com/andresuchdata/restock-advisor/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	files    []*File
	contents map[string]string
	listErr  error
}

func (f *fakeSource) ListFiles(context.Context, string) ([]*File, error) {
	return f.files, f.listErr
}

func (f *fakeSource) DownloadFile(_ context.Context, fileID string, w io.Writer) error {
	body, ok := f.contents[fileID]
	if !ok {
		return errors.New("404")
	}
	_, err := io.WriteString(w, body)
	return err
}

func TestSyncFolderImportsSalesFiles(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id, err := store.UpsertProduct(ctx, &domain.Product{SKU: "WID-1"})
	require.NoError(t, err)

	src := &fakeSource{
		files: []*File{
			{ID: "a", Name: "jan.csv"},
			{ID: "b", Name: "notes.txt"},
			{ID: "c", Name: "feb.CSV"},
			{ID: "d", Name: "missing.csv"},
			{ID: "e", Name: "broken.csv"},
		},
		contents: map[string]string{
			"a": "sku,date,quantity\nWID-1,2024-01-01,3\n",
			"c": "sku,date,quantity\nWID-1,2024-02-01,5\n",
			"e": "sku,when,quantity\nWID-1,x,1\n",
		},
	}

	results, err := NewSyncer(src, ingest.NewImporter(store, store)).SyncFolder(ctx, "folder")
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, 1, results[0].Report.Upserted)
	assert.Equal(t, 1, results[1].Report.Upserted)
	assert.Contains(t, results[2].Error, "failed to download missing.csv")
	assert.True(t, strings.Contains(results[3].Error, "missing required column: date"))

	obs, err := store.ListObservations(ctx, id)
	require.NoError(t, err)
	assert.Len(t, obs, 2)
}

func TestSyncFolderListError(t *testing.T) {
	store := memory.NewStore()
	src := &fakeSource{listErr: errors.New("quota")}

	_, err := NewSyncer(src, ingest.NewImporter(store, store)).SyncFolder(context.Background(), "")
	assert.EqualError(t, err, "quota")
}
