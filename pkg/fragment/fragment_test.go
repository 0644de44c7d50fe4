package fragment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragstore/fragstore/pkg/fragment"
	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/memory"
)

func TestNewGeneratesIdentity(t *testing.T) {
	b := memory.NewBackend()

	f, err := fragment.New(b, "owner-a", "text/plain", []byte("hello"))
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "owner-a", f.OwnerID)
	assert.Equal(t, "text/plain", f.Type)
	assert.Equal(t, int64(5), f.Size)
	assert.False(t, f.Created.IsZero())
	assert.False(t, f.Updated.Before(f.Created))

	g, err := fragment.New(b, "owner-a", "text/plain", nil)
	require.NoError(t, err)
	assert.NotEqual(t, f.ID, g.ID)
}

func TestNewRejectsUnsupportedType(t *testing.T) {
	b := memory.NewBackend()

	for _, mediaType := range []string{"application/pdf", "video/mp4", "not a type", ""} {
		_, err := fragment.New(b, "owner-a", mediaType, nil)
		assert.ErrorIs(t, err, fragment.ErrUnsupportedType, "type %q", mediaType)
	}
}

func TestNewNormalizesTypeParameters(t *testing.T) {
	b := memory.NewBackend()

	f, err := fragment.New(b, "owner-a", "Text/Plain; Charset=UTF-8", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", f.Type)
}

// Create, save, read back: the stored fragment reports the payload's exact
// size and returns the payload byte for byte.
func TestSaveAndReadBack(t *testing.T) {
	b := memory.NewBackend()

	f, err := fragment.New(b, "owner-a", "text/plain", []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Save(context.Background()))

	got, err := fragment.ByID(context.Background(), b, "owner-a", f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Size)
	assert.Equal(t, "text/plain", got.Type)

	data, err := got.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestSaveMetadataOnly(t *testing.T) {
	b := memory.NewBackend()

	f, err := fragment.New(b, "owner-a", "text/plain", nil)
	require.NoError(t, err)
	require.NoError(t, f.Save(context.Background()))

	got, err := fragment.ByID(context.Background(), b, "owner-a", f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Size)

	// No payload was ever written.
	_, err = fragment.ByIDData(context.Background(), b, "owner-a", f.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestByIDForeignOwnerIsNotFound(t *testing.T) {
	b := memory.NewBackend()

	f, err := fragment.New(b, "owner-a", "text/plain", []byte("secret"))
	require.NoError(t, err)
	require.NoError(t, f.Save(context.Background()))

	_, err = fragment.ByID(context.Background(), b, "owner-b", f.ID)
	assert.ErrorIs(t, err, fragment.ErrNotFound)

	_, err = fragment.ByIDData(context.Background(), b, "owner-b", f.ID)
	assert.ErrorIs(t, err, fragment.ErrNotFound)
}

func TestByIDData(t *testing.T) {
	b := memory.NewBackend()

	f, err := fragment.New(b, "owner-a", "application/json", []byte(`{"a":1}`))
	require.NoError(t, err)
	require.NoError(t, f.Save(context.Background()))

	data, err := fragment.ByIDData(context.Background(), b, "owner-a", f.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), data)
}

// Non-expanded listings carry identity and timestamps only.
func TestByUserProjections(t *testing.T) {
	b := memory.NewBackend()
	saveFragment(t, b, "owner-a", "text/plain", []byte("one"))
	saveFragment(t, b, "owner-a", "text/html", []byte("<p>two</p>"))

	list, err := fragment.ByUser(context.Background(), b, "owner-a", false)
	require.NoError(t, err)
	require.Len(t, list, 2)

	for _, f := range list {
		assert.NotEmpty(t, f.ID)
		assert.False(t, f.Created.IsZero())
		assert.False(t, f.Updated.IsZero())
		assert.Empty(t, f.Type)
		assert.Zero(t, f.Size)
	}
}

func TestByUserExpandedLoadsData(t *testing.T) {
	b := memory.NewBackend()
	saved := saveFragment(t, b, "owner-a", "text/plain", []byte("hello"))
	saveFragment(t, b, "owner-a", "text/plain", nil)

	list, err := fragment.ByUser(context.Background(), b, "owner-a", true)
	require.NoError(t, err)
	require.Len(t, list, 2)

	for _, f := range list {
		if f.ID != saved.ID {
			continue
		}
		assert.Equal(t, "text/plain", f.Type)
		data, err := f.Data(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	}
}

func TestByUserEmpty(t *testing.T) {
	b := memory.NewBackend()

	list, err := fragment.ByUser(context.Background(), b, "owner-a", false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestByUserIsolation(t *testing.T) {
	b := memory.NewBackend()
	saveFragment(t, b, "owner-a", "text/plain", []byte("mine"))
	other := saveFragment(t, b, "owner-b", "text/plain", []byte("theirs"))

	list, err := fragment.ByUser(context.Background(), b, "owner-a", false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEqual(t, other.ID, list[0].ID)
}

func TestUpdateReplacesTypeAndData(t *testing.T) {
	b := memory.NewBackend()
	f := saveFragment(t, b, "owner-a", "text/plain", []byte("hello"))
	created := f.Created

	err := f.Update(context.Background(), []byte(`{"k":"v"}`), "application/json")
	require.NoError(t, err)

	got, err := fragment.ByID(context.Background(), b, "owner-a", f.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/json", got.Type)
	assert.Equal(t, int64(9), got.Size)
	assert.True(t, got.Created.Equal(created), "created must survive updates")
	assert.False(t, got.Updated.Before(got.Created))

	data, err := got.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"k":"v"}`), data)
}

func TestUpdateRejectsEmptyData(t *testing.T) {
	b := memory.NewBackend()
	f := saveFragment(t, b, "owner-a", "text/plain", []byte("hello"))

	assert.ErrorIs(t, f.Update(context.Background(), nil, "text/plain"), fragment.ErrInvalidData)
	assert.ErrorIs(t, f.Update(context.Background(), []byte{}, "text/plain"), fragment.ErrInvalidData)

	// Fragment unchanged.
	got, err := fragment.ByID(context.Background(), b, "owner-a", f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Size)
}

func TestUpdateRejectsUnsupportedType(t *testing.T) {
	b := memory.NewBackend()
	f := saveFragment(t, b, "owner-a", "text/plain", []byte("hello"))

	err := f.Update(context.Background(), []byte("%PDF-1.7"), "application/pdf")
	assert.ErrorIs(t, err, fragment.ErrUnsupportedType)
}

func TestDelete(t *testing.T) {
	b := memory.NewBackend()
	f := saveFragment(t, b, "owner-a", "text/plain", []byte("gone"))

	deleted, err := fragment.Delete(context.Background(), b, "owner-a", f.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = fragment.ByID(context.Background(), b, "owner-a", f.ID)
	assert.ErrorIs(t, err, fragment.ErrNotFound)

	// Second delete reports nothing to do.
	deleted, err = fragment.Delete(context.Background(), b, "owner-a", f.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteForeignOwner(t *testing.T) {
	b := memory.NewBackend()
	f := saveFragment(t, b, "owner-a", "text/plain", []byte("keep"))

	deleted, err := fragment.Delete(context.Background(), b, "owner-b", f.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = fragment.ByID(context.Background(), b, "owner-a", f.ID)
	assert.NoError(t, err)
}

// Data is fetched once and memoized on the instance.
func TestDataMemoized(t *testing.T) {
	b := memory.NewBackend()
	f := saveFragment(t, b, "owner-a", "text/plain", []byte("hello"))

	got, err := fragment.ByID(context.Background(), b, "owner-a", f.ID)
	require.NoError(t, err)

	first, err := got.Data(context.Background())
	require.NoError(t, err)

	// Delete the backing blob; the cached copy must still be served.
	_, err = fragment.Delete(context.Background(), b, "owner-a", f.ID)
	require.NoError(t, err)

	second, err := got.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIsSupportedType(t *testing.T) {
	supported := []string{
		"text/plain",
		"text/plain; charset=utf-8",
		"text/markdown",
		"application/json",
		"image/png",
		"image/avif",
	}
	for _, mediaType := range supported {
		assert.True(t, fragment.IsSupportedType(mediaType), "type %q", mediaType)
	}

	unsupported := []string{
		"application/pdf",
		"audio/mpeg",
		"text/plain extra",
		"",
	}
	for _, mediaType := range unsupported {
		assert.False(t, fragment.IsSupportedType(mediaType), "type %q", mediaType)
	}
}

func saveFragment(t *testing.T, b store.Backend, ownerID, mediaType string, data []byte) *fragment.Fragment {
	t.Helper()

	f, err := fragment.New(b, ownerID, mediaType, data)
	require.NoError(t, err)
	require.NoError(t, f.Save(context.Background()))
	return f
}
