// Package storetest provides a conformance suite for Backend implementations.
//
// Every backend (volatile, durable composites, the cache decorator) must
// satisfy the same contract; implementations run the suite from their own
// test packages:
//
//	func TestBackendConformance(t *testing.T) {
//	    suite := &storetest.Suite{
//	        NewBackend: func(t *testing.T) store.Backend {
//	            return memory.NewBackend()
//	        },
//	    }
//	    suite.Run(t)
//	}
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragstore/fragstore/pkg/store"
)

// Suite runs the Backend contract tests against a fresh backend per test.
type Suite struct {
	// NewBackend returns an empty backend. Called once per subtest so tests
	// never share state.
	NewBackend func(t *testing.T) store.Backend
}

// Run executes the full conformance suite.
func (s *Suite) Run(t *testing.T) {
	t.Run("ReadMetadata_NotFound", s.testReadMetadataNotFound)
	t.Run("WriteMetadata_RoundTrip", s.testWriteMetadataRoundTrip)
	t.Run("ReadMetadata_ForeignOwner", s.testReadMetadataForeignOwner)
	t.Run("WriteBlob_NoMetadata", s.testWriteBlobNoMetadata)
	t.Run("WriteBlob_RecomputesSize", s.testWriteBlobRecomputesSize)
	t.Run("WriteBlob_ForeignOwner", s.testWriteBlobForeignOwner)
	t.Run("ReadBlob_NotFound", s.testReadBlobNotFound)
	t.Run("ReadBlob_ForeignOwner", s.testReadBlobForeignOwner)
	t.Run("ReadBlob_MetadataOnlyFragment", s.testReadBlobMetadataOnly)
	t.Run("ListByOwner_Projections", s.testListByOwnerProjections)
	t.Run("ListByOwner_Expanded", s.testListByOwnerExpanded)
	t.Run("ListByOwner_Empty", s.testListByOwnerEmpty)
	t.Run("ListByOwner_Isolation", s.testListByOwnerIsolation)
	t.Run("ListByOwner_SeparatorInOwnerID", s.testListByOwnerSeparatorInOwnerID)
	t.Run("DeleteFragment_Missing", s.testDeleteFragmentMissing)
	t.Run("DeleteFragment_ForeignOwner", s.testDeleteFragmentForeignOwner)
	t.Run("DeleteFragment_RemovesBoth", s.testDeleteFragmentRemovesBoth)
	t.Run("Healthcheck", s.testHealthcheck)
}

func newMetadata(ownerID string) *store.Metadata {
	now := time.Now().UTC()
	return &store.Metadata{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Type:    "text/plain",
		Created: now,
		Updated: now,
	}
}

// seed writes metadata (and optionally a blob) for a fresh fragment.
func seed(t *testing.T, b store.Backend, ownerID string, data []byte) *store.Metadata {
	t.Helper()

	md, err := b.WriteMetadata(context.Background(), newMetadata(ownerID))
	require.NoError(t, err)

	if data != nil {
		md, err = b.WriteBlob(context.Background(), ownerID, md.ID, data)
		require.NoError(t, err)
	}
	return md
}

func (s *Suite) testReadMetadataNotFound(t *testing.T) {
	b := s.NewBackend(t)

	_, err := b.ReadMetadata(context.Background(), "owner-a", uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (s *Suite) testWriteMetadataRoundTrip(t *testing.T) {
	b := s.NewBackend(t)
	md := seed(t, b, "owner-a", nil)

	got, err := b.ReadMetadata(context.Background(), "owner-a", md.ID)
	require.NoError(t, err)
	assert.Equal(t, md.ID, got.ID)
	assert.Equal(t, "owner-a", got.OwnerID)
	assert.Equal(t, "text/plain", got.Type)
	assert.Equal(t, int64(0), got.Size)
}

func (s *Suite) testReadMetadataForeignOwner(t *testing.T) {
	b := s.NewBackend(t)
	md := seed(t, b, "owner-a", nil)

	// A different owner must observe exactly "not found".
	_, err := b.ReadMetadata(context.Background(), "owner-b", md.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (s *Suite) testWriteBlobNoMetadata(t *testing.T) {
	b := s.NewBackend(t)

	_, err := b.WriteBlob(context.Background(), "owner-a", uuid.NewString(), []byte("data"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (s *Suite) testWriteBlobRecomputesSize(t *testing.T) {
	b := s.NewBackend(t)
	md := seed(t, b, "owner-a", nil)

	updated, err := b.WriteBlob(context.Background(), "owner-a", md.ID, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.Size)
	assert.False(t, updated.Updated.Before(updated.Created), "updated must not precede created")

	// Replacing the payload recomputes size again.
	updated, err = b.WriteBlob(context.Background(), "owner-a", md.ID, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Size)

	got, err := b.ReadBlob(context.Background(), "owner-a", md.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got)
}

func (s *Suite) testWriteBlobForeignOwner(t *testing.T) {
	b := s.NewBackend(t)
	md := seed(t, b, "owner-a", nil)

	_, err := b.WriteBlob(context.Background(), "owner-b", md.ID, []byte("hijack"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The fragment must be untouched.
	got, err := b.ReadMetadata(context.Background(), "owner-a", md.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Size)
}

func (s *Suite) testReadBlobNotFound(t *testing.T) {
	b := s.NewBackend(t)

	_, err := b.ReadBlob(context.Background(), "owner-a", uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (s *Suite) testReadBlobForeignOwner(t *testing.T) {
	b := s.NewBackend(t)
	md := seed(t, b, "owner-a", []byte("secret"))

	_, err := b.ReadBlob(context.Background(), "owner-b", md.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (s *Suite) testReadBlobMetadataOnly(t *testing.T) {
	b := s.NewBackend(t)
	md := seed(t, b, "owner-a", nil)

	// Metadata-only fragments are valid but have no blob yet.
	_, err := b.ReadBlob(context.Background(), "owner-a", md.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (s *Suite) testListByOwnerProjections(t *testing.T) {
	b := s.NewBackend(t)
	seed(t, b, "owner-a", []byte("one"))
	seed(t, b, "owner-a", []byte("two"))

	list, err := b.ListByOwner(context.Background(), "owner-a", false)
	require.NoError(t, err)
	require.Len(t, list, 2)

	for _, md := range list {
		assert.NotEmpty(t, md.ID)
		assert.False(t, md.Created.IsZero())
		assert.False(t, md.Updated.IsZero())
		// Projections carry only id and timestamps.
		assert.Empty(t, md.Type)
		assert.Zero(t, md.Size)
	}
}

func (s *Suite) testListByOwnerExpanded(t *testing.T) {
	b := s.NewBackend(t)
	md := seed(t, b, "owner-a", []byte("hello"))

	list, err := b.ListByOwner(context.Background(), "owner-a", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, md.ID, list[0].ID)
	assert.Equal(t, "text/plain", list[0].Type)
	assert.Equal(t, int64(5), list[0].Size)
}

func (s *Suite) testListByOwnerEmpty(t *testing.T) {
	b := s.NewBackend(t)

	list, err := b.ListByOwner(context.Background(), "owner-a", false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func (s *Suite) testListByOwnerIsolation(t *testing.T) {
	b := s.NewBackend(t)
	seed(t, b, "owner-a", nil)
	other := seed(t, b, "owner-b", nil)

	list, err := b.ListByOwner(context.Background(), "owner-a", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEqual(t, other.ID, list[0].ID)
}

// Owner ids are opaque strings. Punctuation a backend uses internally as a
// key separator must not bleed one owner's records into another's.
func (s *Suite) testListByOwnerSeparatorInOwnerID(t *testing.T) {
	b := s.NewBackend(t)
	kept := seed(t, b, "owner-a", nil)
	nested := seed(t, b, "owner-a:x", nil)

	list, err := b.ListByOwner(context.Background(), "owner-a", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	list, err = b.ListByOwner(context.Background(), "owner-a:x", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, nested.ID, list[0].ID)

	_, err = b.ReadMetadata(context.Background(), "owner-a", nested.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (s *Suite) testDeleteFragmentMissing(t *testing.T) {
	b := s.NewBackend(t)

	deleted, err := b.DeleteFragment(context.Background(), "owner-a", uuid.NewString())
	require.NoError(t, err)
	assert.False(t, deleted)
}

func (s *Suite) testDeleteFragmentForeignOwner(t *testing.T) {
	b := s.NewBackend(t)
	md := seed(t, b, "owner-a", []byte("keep"))

	deleted, err := b.DeleteFragment(context.Background(), "owner-b", md.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// Still there for the real owner.
	_, err = b.ReadMetadata(context.Background(), "owner-a", md.ID)
	assert.NoError(t, err)
}

func (s *Suite) testDeleteFragmentRemovesBoth(t *testing.T) {
	b := s.NewBackend(t)
	md := seed(t, b, "owner-a", []byte("gone"))

	deleted, err := b.DeleteFragment(context.Background(), "owner-a", md.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = b.ReadMetadata(context.Background(), "owner-a", md.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = b.ReadBlob(context.Background(), "owner-a", md.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (s *Suite) testHealthcheck(t *testing.T) {
	b := s.NewBackend(t)
	assert.NoError(t, b.Healthcheck(context.Background()))
}
