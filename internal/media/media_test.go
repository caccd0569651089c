package media

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveUsesDeterministicNames(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Save(Sticker, "3EB0ABC", []byte("RIFFxxxxWEBP"))
	require.NoError(t, err)
	assert.Equal(t, "/stickers/3EB0ABC.webp", ref)

	ref, err = s.Save(Audio, "3EB0DEF", []byte("OggS"))
	require.NoError(t, err)
	assert.Equal(t, "/audios/3EB0DEF.ogg", ref)

	data, err := os.ReadFile(filepath.Join(s.Root(), "audios", "3EB0DEF.ogg"))
	require.NoError(t, err)
	assert.Equal(t, "OggS", string(data))
}

func TestOpenRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Save(Sticker, "id1", []byte("payload"))
	require.NoError(t, err)

	rc, err := s.Open(ref)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestUnsafeIDsAreSanitised(t *testing.T) {
	assert.Equal(t, "/stickers/.._.._etc_passwd.webp", RefFor(Sticker, "../../etc/passwd"))
}

func TestPathRejectsEscapes(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"/etc/passwd", "/stickers/../x", "/stickers/", "/stickers/a/b.webp", "stickers", "/other/x.webp"} {
		_, err := s.Path(ref)
		assert.ErrorIs(t, err, ErrBadRef, ref)
	}
}

func TestRename(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save(Audio, "temp-1", []byte("a"))
	require.NoError(t, err)
	ref, err := s.Rename(Audio, "temp-1", "FINAL")
	require.NoError(t, err)
	assert.Equal(t, "/audios/FINAL.ogg", ref)

	_, err = os.Stat(filepath.Join(s.Root(), "audios", "temp-1.ogg"))
	assert.True(t, os.IsNotExist(err))
}

func TestFavoritesNewestFirst(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	first, err := s.SaveFavorite([]byte("1"))
	require.NoError(t, err)
	second, err := s.SaveFavorite([]byte("2"))
	require.NoError(t, err)
	_, err = s.Save(Sticker, "inbound", []byte("3"))
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	p, _ := s.Path(first)
	require.NoError(t, os.Chtimes(p, old, old))

	favs, err := s.ListFavorites()
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, second, favs[0].Ref)
	assert.Equal(t, first, favs[1].Ref)
}

func TestRemoveMissingIsNoop(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Remove("/stickers/none.webp"))
}
