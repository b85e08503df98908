package notifier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewwormald/notifier"
	"github.com/andrewwormald/notifier/adapters/memstore"
)

func TestTemplateResolverFind(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewTemplateStore()
	resolver := notifier.NewTemplateResolver(store)

	body, found, err := resolver.Find(ctx, notifier.TypeTimesheet)
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, body)

	err = store.Put(ctx, notifier.TemplateKey(notifier.TypeTimesheet), "Dear {name},")
	require.NoError(t, err)

	body, found, err = resolver.Find(ctx, notifier.TypeTimesheet)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Dear {name},", body)

	// Other types remain unresolved.
	_, found, err = resolver.Find(ctx, notifier.TypeFeedback)
	require.NoError(t, err)
	require.False(t, found)
}

func TestTemplateSeederSeedAll(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewTemplateStore()
	seeder := notifier.NewTemplateSeeder(store)

	err := seeder.SeedAll(ctx)
	require.NoError(t, err)

	for _, v := range notifier.Variants() {
		body, err := store.Get(ctx, notifier.TemplateKey(v.Type))
		require.NoError(t, err)
		require.Equal(t, v.DefaultTemplate, body)
	}
}

func TestTemplateSeederOverwrites(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewTemplateStore()

	err := store.Put(ctx, notifier.TemplateKey(notifier.TypeTimesheet), "custom body")
	require.NoError(t, err)

	err = notifier.NewTemplateSeeder(store).SeedAll(ctx)
	require.NoError(t, err)

	body, err := store.Get(ctx, notifier.TemplateKey(notifier.TypeTimesheet))
	require.NoError(t, err)
	require.NotEqual(t, "custom body", body)
}

func TestSeedThenFind(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewTemplateStore()

	err := notifier.NewTemplateSeeder(store).SeedAll(ctx)
	require.NoError(t, err)

	body, found, err := notifier.NewTemplateResolver(store).Find(ctx, notifier.TypeFeedback)
	require.NoError(t, err)
	require.True(t, found)
	require.Contains(t, body, "{candidate}")
}
