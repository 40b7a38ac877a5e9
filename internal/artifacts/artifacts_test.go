package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"eventsds/internal/catalog"
	"eventsds/internal/model"
)

func sampleBands() *model.Bands {
	b := model.NewBands()
	b.Add("temp", model.BandDefinition{Cuts: []float64{0, 50, 100}, Labels: []string{"0_50", "50_100"}})
	b.Add("flow", model.BandDefinition{Cuts: []float64{3, 3}, Labels: []string{"0_100"}})
	return b
}

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFS(dir)
	b := sampleBands()
	c := catalog.Build(b, model.EventBoth, model.NaNKeep)

	require.NoError(t, store.PutBands(ctx, b))
	require.NoError(t, store.PutCatalog(ctx, c))

	gotBands, err := store.Bands(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"temp", "flow"}, gotBands.Measures())

	gotCatalog, err := store.Catalog(ctx)
	require.NoError(t, err)
	require.Equal(t, c.Names(), gotCatalog.Names())

	_, err = os.Stat(filepath.Join(dir, CatalogName))
	require.NoError(t, err)
}

func TestFSStoreIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	store := NewFS(t.TempDir())
	b := sampleBands()

	require.NoError(t, store.PutCatalog(ctx, catalog.Build(b, model.EventBoth, model.NaNKeep)))
	require.NoError(t, store.PutCatalog(ctx, catalog.Build(b, model.EventBoth, model.NaNKeep)), "identical rewrite is accepted")

	err := store.PutCatalog(ctx, catalog.Build(b, model.EventLevels, model.NaNKeep))
	require.True(t, errors.Is(err, model.ErrArtifactConflict))
}

func TestFSStoreMissing(t *testing.T) {
	_, err := NewFS(t.TempDir()).Catalog(context.Background())
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestFSStoreRollbackKeepsPreexisting(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := sampleBands()

	require.NoError(t, NewFS(dir).PutBands(ctx, b))

	store := NewFS(dir)
	require.NoError(t, store.PutBands(ctx, b))
	require.NoError(t, store.PutCatalog(ctx, catalog.Build(b, model.EventBoth, model.NaNKeep)))
	require.NoError(t, store.Rollback(ctx))

	_, err := os.Stat(filepath.Join(dir, BandsName))
	require.NoError(t, err, "bands were written by an earlier run")
	_, err = os.Stat(filepath.Join(dir, CatalogName))
	require.True(t, os.IsNotExist(err))
}

func TestMissingArtifactIsDataContractError(t *testing.T) {
	_, err := NewFS(t.TempDir()).Bands(context.Background())
	require.True(t, errors.Is(err, model.ErrDataContract))
}
