package valuestore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T, opts ...Option) *Store {
	dir, err := ioutil.TempDir("", "valuestore")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	s, err := Open(filepath.Join(dir, "values"), opts...)
	require.NoError(t, err)
	return s
}

func TestMissingFileIsEmpty(t *testing.T) {
	s := tempStore(t)
	v, ok, err := s.Get(3)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, v)

	n := 0
	require.NoError(t, s.Load(func(uint16, []byte) { n++ }))
	require.Zero(t, n)
}

func TestPutGet(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Put(2, []byte{0x41, 0x42}))
	require.NoError(t, s.Put(7, nil))
	require.NoError(t, s.Put(2, []byte{0x43}))

	v, ok, err := s.Get(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0x43}, v)

	v, ok, err = s.Get(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, v)

	rr, err := s.Records()
	require.NoError(t, err)
	require.Len(t, rr, 2)
	require.Equal(t, uint16(2), rr[0].Handle)
	require.Equal(t, uint16(7), rr[1].Handle)
}

func TestReopenSeesValues(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Put(1, []byte("persisted")))

	s2, err := Open(s.Path())
	require.NoError(t, err)
	got := map[uint16]string{}
	require.NoError(t, s2.Load(func(h uint16, v []byte) { got[h] = string(v) }))
	require.Equal(t, map[uint16]string{1: "persisted"}, got)
}

func TestGetSeesExternalWrite(t *testing.T) {
	s := tempStore(t, CacheSize(4))
	require.NoError(t, s.Put(1, []byte("a")))
	_, _, err := s.Get(1)
	require.NoError(t, err)

	b := Encode(nil, Record{Handle: 1, Value: []byte("longer")})
	require.NoError(t, ioutil.WriteFile(s.Path(), b, 0600))

	v, ok, err := s.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "longer", string(v))
}

func TestPutTooLong(t *testing.T) {
	s := tempStore(t)
	err := s.Put(1, make([]byte, MaxValueLen+1))
	require.Error(t, err)
	_, ok := err.(*PersistenceError)
	require.True(t, ok, "got %T", err)
}

func TestUnreadableFile(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.Mkdir(s.Path(), 0700)) // a directory cannot be read as a file
	_, _, err := s.Get(1)
	require.Error(t, err)
	pe, ok := err.(*PersistenceError)
	require.True(t, ok, "got %T", err)
	require.NotNil(t, errors.Cause(pe))
}
