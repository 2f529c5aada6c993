package sheet

import "context"

// Persistence is the record store for sheets. Implementations serialize
// writes to a given record; the core never does.
type Persistence interface {
	Get(ctx context.Context, id int64) (Sheet, error)
	// Put inserts s when s.ID is zero and updates it otherwise, returning the stored ID.
	Put(ctx context.Context, s Sheet) (int64, error)
	Delete(ctx context.Context, id int64) error
	// List loads the current sheets, most recently updated first.
	List(ctx context.Context) ([]Sheet, error)
}

// Watcher is implemented by stores that can push fresh snapshots of all
// sheets after changes. Watch blocks until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, onChange func([]Sheet)) error
}

// SecretStore holds vault metadata records. It never stores passwords or keys.
type SecretStore interface {
	Write(ctx context.Context, key, value string) error
	// Read returns ok=false when key is absent.
	Read(ctx context.Context, key string) (value string, ok bool, err error)
	Delete(ctx context.Context, key string) error
}
