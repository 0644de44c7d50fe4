// Package fragment implements the fragment domain model.
//
// A fragment is an owner-scoped, typed byte payload: metadata (identity,
// media type, size, timestamps) plus blob data, persisted through a
// store.Backend chosen at startup. The model owns identity generation and
// type validation; it does not know which backend it runs on.
package fragment

import (
	"context"
	"fmt"
	"mime"
	"time"

	"github.com/google/uuid"

	"github.com/fragstore/fragstore/pkg/store"
)

// Fragment is a single stored payload and its metadata.
//
// The payload is loaded lazily through Data and cached on the instance.
// Concurrent writers to the same fragment are not coordinated: the last
// write wins, on metadata and blob independently.
type Fragment struct {
	ID      string
	OwnerID string
	Type    string
	Size    int64
	Created time.Time
	Updated time.Time

	backend store.Backend

	// Payload cache. loaded distinguishes "not fetched yet" from a fetched
	// empty payload, so Data never refetches a known-empty blob.
	data   []byte
	loaded bool
}

// New builds an unsaved fragment for ownerID with a fresh id.
//
// mimeType must name a supported media type; parameters (e.g. charset) are
// preserved in normalized form. data may be empty, in which case Save
// persists metadata only.
func New(backend store.Backend, ownerID, mimeType string, data []byte) (*Fragment, error) {
	normalized, err := normalizeType(mimeType)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Fragment{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Type:    normalized,
		Size:    int64(len(data)),
		Created: now,
		Updated: now,
		backend: backend,
		data:    data,
		loaded:  true,
	}, nil
}

// Save persists the fragment: metadata first, then the payload when one is
// present. The backend echoes the stored metadata back and the fragment
// adopts it, so size and timestamps reflect what was actually persisted.
func (f *Fragment) Save(ctx context.Context) error {
	md, err := f.backend.WriteMetadata(ctx, f.metadata())
	if err != nil {
		return fmt.Errorf("saving fragment metadata: %w", err)
	}
	f.apply(md)

	if len(f.data) == 0 {
		return nil
	}

	md, err = f.backend.WriteBlob(ctx, f.OwnerID, f.ID, f.data)
	if err != nil {
		return fmt.Errorf("saving fragment data: %w", err)
	}
	f.apply(md)
	return nil
}

// ByID fetches a fragment's metadata. The payload is not loaded; use Data.
// Absence and foreign ownership are both reported as store.ErrNotFound.
func ByID(ctx context.Context, backend store.Backend, ownerID, id string) (*Fragment, error) {
	md, err := backend.ReadMetadata(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return fromMetadata(backend, md), nil
}

// ByIDData fetches a fragment's raw payload without constructing the model.
func ByIDData(ctx context.Context, backend store.Backend, ownerID, id string) ([]byte, error) {
	return backend.ReadBlob(ctx, ownerID, id)
}

// ByUser lists ownerID's fragments. With expand false the fragments carry
// only id and timestamps. With expand true full metadata is returned and
// each non-empty payload is loaded eagerly, in order; the first failed load
// fails the whole listing.
func ByUser(ctx context.Context, backend store.Backend, ownerID string, expand bool) ([]*Fragment, error) {
	records, err := backend.ListByOwner(ctx, ownerID, expand)
	if err != nil {
		return nil, err
	}

	fragments := make([]*Fragment, 0, len(records))
	for _, md := range records {
		f := fromMetadata(backend, md)
		if expand {
			f.OwnerID = ownerID
			if f.Size > 0 {
				if _, err := f.Data(ctx); err != nil {
					return nil, fmt.Errorf("loading data for fragment %s: %w", f.ID, err)
				}
			}
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

// Update replaces the fragment's payload and media type, then persists.
// An empty payload is rejected: updates always carry new content.
func (f *Fragment) Update(ctx context.Context, data []byte, mimeType string) error {
	if len(data) == 0 {
		return ErrInvalidData
	}
	normalized, err := normalizeType(mimeType)
	if err != nil {
		return err
	}

	f.Type = normalized
	f.Size = int64(len(data))
	f.Updated = time.Now().UTC()
	f.data = data
	f.loaded = true

	md, err := f.backend.WriteMetadata(ctx, f.metadata())
	if err != nil {
		return fmt.Errorf("updating fragment metadata: %w", err)
	}
	f.apply(md)

	md, err = f.backend.WriteBlob(ctx, f.OwnerID, f.ID, data)
	if err != nil {
		return fmt.Errorf("updating fragment data: %w", err)
	}
	f.apply(md)
	return nil
}

// Delete removes a fragment. It reports false without error when the
// fragment does not exist or belongs to another owner.
func Delete(ctx context.Context, backend store.Backend, ownerID, id string) (bool, error) {
	return backend.DeleteFragment(ctx, ownerID, id)
}

// Data returns the fragment's payload, fetching it from the backend on
// first use and serving the cached copy afterwards.
func (f *Fragment) Data(ctx context.Context) ([]byte, error) {
	if f.loaded {
		return f.data, nil
	}

	data, err := f.backend.ReadBlob(ctx, f.OwnerID, f.ID)
	if err != nil {
		return nil, err
	}
	f.data = data
	f.loaded = true
	return data, nil
}

// normalizeType validates value against the supported set and returns it in
// canonical form, media-type parameters included.
func normalizeType(value string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, value)
	}
	if _, ok := supportedTypes[mediaType]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mediaType)
	}
	return mime.FormatMediaType(mediaType, params), nil
}

func (f *Fragment) metadata() *store.Metadata {
	return &store.Metadata{
		ID:      f.ID,
		OwnerID: f.OwnerID,
		Type:    f.Type,
		Size:    f.Size,
		Created: f.Created,
		Updated: f.Updated,
	}
}

func (f *Fragment) apply(md *store.Metadata) {
	f.Size = md.Size
	f.Created = md.Created
	f.Updated = md.Updated
}

func fromMetadata(backend store.Backend, md *store.Metadata) *Fragment {
	return &Fragment{
		ID:      md.ID,
		OwnerID: md.OwnerID,
		Type:    md.Type,
		Size:    md.Size,
		Created: md.Created,
		Updated: md.Updated,
		backend: backend,
	}
}
