package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftsync/driftsync"
)

func testBatch() *driftsync.SavedBatch {
	return &driftsync.SavedBatch{
		Classes: []*driftsync.SavedClass{
			{
				Type: 1, ID: 1,
				Fields: []driftsync.SavedField{
					{ID: 1, Kind: driftsync.KindInt, Value: "100"},
					{ID: 2, Kind: driftsync.KindString, Value: "alice"},
				},
				Classes: []*driftsync.SavedClass{
					{
						Type: 2, ID: 1,
						Fields: []driftsync.SavedField{
							{ID: 3, Kind: driftsync.KindVector3, Value: "1,2,3"},
						},
					},
				},
			},
			{
				Type: 2, ID: 5,
				Fields: []driftsync.SavedField{
					{ID: 1, Kind: driftsync.KindBool, Value: "true"},
				},
			},
		},
		Fields: []driftsync.SavedField{
			{ID: 9, Kind: driftsync.KindLong, Value: "12345"},
		},
	}
}

func TestStoreBatchRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	assert.NoError(t, err)
	defer s.Close()

	put := testBatch()
	assert.NoError(t, s.PutBatch(put))

	got, err := s.GetBatch()
	assert.NoError(t, err)
	assert.Equal(t, put.Classes, got.Classes)
	assert.Equal(t, put.Fields, got.Fields)
}

func TestStoreClassRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	assert.NoError(t, err)
	defer s.Close()

	sc := testBatch().Classes[0]
	assert.NoError(t, s.PutClass(sc))

	got, err := s.GetClass(sc.Type, sc.ID)
	assert.NoError(t, err)
	assert.Equal(t, sc, got)

	// cache serves the same tree without a reparse
	again, err := s.GetClass(sc.Type, sc.ID)
	assert.NoError(t, err)
	assert.Same(t, got, again)
}

func TestStoreSessionStable(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	assert.NoError(t, err)

	id, err := s.Session()
	assert.NoError(t, err)
	again, err := s.Session()
	assert.NoError(t, err)
	assert.Equal(t, id, again)
	assert.NoError(t, s.Close())

	// identity survives a reopen
	s, err = Open(dir, nil)
	assert.NoError(t, err)
	defer s.Close()
	reopened, err := s.Session()
	assert.NoError(t, err)
	assert.Equal(t, id, reopened)
}

func TestStoreOverwrite(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	assert.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.PutBatch(testBatch()))
	newer := testBatch()
	newer.Classes[0].Fields[0].Value = "50"
	assert.NoError(t, s.PutBatch(newer))

	got, err := s.GetBatch()
	assert.NoError(t, err)
	assert.Equal(t, "50", got.Classes[0].Fields[0].Value)
}

func TestStorePutBatchRefreshesCache(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	assert.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.PutBatch(testBatch()))
	newer := testBatch()
	newer.Classes[0].Fields[0].Value = "50"
	assert.NoError(t, s.PutBatch(newer))

	// the cached tree reflects the committed write
	got, err := s.GetClass(1, 1)
	assert.NoError(t, err)
	assert.Same(t, newer.Classes[0], got)
	assert.Equal(t, "50", got.Fields[0].Value)
}

func TestStoreCollector(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	assert.NoError(t, err)
	defer s.Close()
	assert.NotNil(t, s.Collector())
}
