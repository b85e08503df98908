package notifier

import (
	"context"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// TemplateStore is the blob store holding template bodies keyed by
// "{type}.txt". All writes are upserts by key so concurrent writers are safe
// without locking; last writer wins.
type TemplateStore interface {
	ListKeys(ctx context.Context) ([]string, error)
	// Get returns the body for the key or ErrTemplateNotFound.
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, body string) error
}

// TemplateKey maps a record type to its template store key.
func TemplateKey(typ string) string {
	return typ + ".txt"
}

type TemplateResolver struct {
	store TemplateStore
}

func NewTemplateResolver(store TemplateStore) *TemplateResolver {
	return &TemplateResolver{store: store}
}

// Find looks up the template body for the type. A missing template is a
// recoverable condition, not an error: found is false and err is nil.
func (t *TemplateResolver) Find(ctx context.Context, typ string) (body string, found bool, err error) {
	key := TemplateKey(typ)

	keys, err := t.store.ListKeys(ctx)
	if err != nil {
		return "", false, errors.Wrap(err, "list template keys")
	}

	var exists bool
	for _, k := range keys {
		if k == key {
			exists = true
			break
		}
	}

	if !exists {
		return "", false, nil
	}

	body, err = t.store.Get(ctx, key)
	if errors.Is(err, ErrTemplateNotFound) {
		// Deleted between list and get.
		return "", false, nil
	} else if err != nil {
		return "", false, errors.Wrap(err, "get template", j.KV("key", key))
	}

	return body, true, nil
}

type TemplateSeeder struct {
	store TemplateStore
}

func NewTemplateSeeder(store TemplateStore) *TemplateSeeder {
	return &TemplateSeeder{store: store}
}

// SeedAll writes the default template body for every known type. Seeding is
// an unconditional write: an existing body for a key is replaced.
func (t *TemplateSeeder) SeedAll(ctx context.Context) error {
	for _, v := range Variants() {
		if v.DefaultTemplate == "" {
			continue
		}

		err := t.store.Put(ctx, TemplateKey(v.Type), v.DefaultTemplate)
		if err != nil {
			return errors.Wrap(err, "seed template", j.KV("type", v.Type))
		}
	}

	return nil
}
