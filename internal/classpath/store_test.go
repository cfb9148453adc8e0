package classpath

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "classpath.db")

	store, err := OpenStore(path)
	require.NoError(t, err)
	g := collectionsGraph()
	require.NoError(t, store.Save(ctx, g))
	require.NoError(t, store.Close())

	store, err = OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Len(), n)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Classes(), loaded.Classes())
	assert.Equal(t, g.Ancestors("java.util.ArrayList"), loaded.Ancestors("java.util.ArrayList"))
}

func TestStoreSaveReplacesInterfaces(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(filepath.Join(t.TempDir(), "classpath.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, collectionsGraph()))
	require.NoError(t, store.Save(ctx, NewGraph(Class{Name: "java.util.ArrayList", Super: "java.util.AbstractList"})))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	c, ok := loaded.Lookup("java.util.ArrayList")
	require.True(t, ok)
	assert.Empty(t, c.Interfaces)
	assert.Empty(t, c.TypeParams)
	assert.True(t, loaded.IsKnown("java.util.LinkedList"))
}
