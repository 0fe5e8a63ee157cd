// Package store persists batcher snapshots in a pebble database: one
// key per root class, one for the standalone fields, one for the store
// session identity. Decoded class trees sit behind a small LRU so
// repeated loads skip the parse.
package store

import (
	"encoding/binary"
	"log/slog"

	"github.com/cockroachdb/pebble"
	"github.com/driftsync/driftsync"
	"github.com/driftsync/driftsync/utils"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

const cacheSize = 128

var writeOptions = pebble.WriteOptions{Sync: false}

var metaKey = []byte{'Y'}
var fieldsKey = []byte{'G'}

func classKey(typeID, id int32) []byte {
	key := make([]byte, 0, 9)
	key = append(key, 'C')
	key = binary.BigEndian.AppendUint32(key, uint32(typeID))
	key = binary.BigEndian.AppendUint32(key, uint32(id))
	return key
}

type Store struct {
	db    *pebble.DB
	dir   string
	cache *lru.Cache[string, *driftsync.SavedClass]
	log   utils.Logger
}

func Open(dir string, log utils.Logger) (*Store, error) {
	if log == nil {
		log = utils.NewDefaultLogger(slog.LevelInfo)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "opening snapshot store")
	}
	cache, err := lru.New[string, *driftsync.SavedClass](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, dir: dir, cache: cache, log: log}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return utils.ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Session returns the store's stable identity, minting one on first use.
func (s *Store) Session() (uuid.UUID, error) {
	val, clo, err := s.db.Get(metaKey)
	if err == nil {
		defer clo.Close()
		id, e := uuid.FromBytes(val)
		return id, e
	}
	if err != pebble.ErrNotFound {
		return uuid.Nil, err
	}
	id := uuid.New()
	if err := s.db.Set(metaKey, id[:], &writeOptions); err != nil {
		return uuid.Nil, errors.Wrap(err, "storing session")
	}
	return id, nil
}

func (s *Store) PutClass(sc *driftsync.SavedClass) error {
	key := classKey(sc.Type, sc.ID)
	val := appendSavedClass(nil, sc)
	if err := s.db.Set(key, val, &writeOptions); err != nil {
		return errors.Wrap(err, "storing class snapshot")
	}
	s.cache.Add(string(key), sc)
	return nil
}

func (s *Store) GetClass(typeID, id int32) (*driftsync.SavedClass, error) {
	key := classKey(typeID, id)
	if sc, ok := s.cache.Get(string(key)); ok {
		return sc, nil
	}
	val, clo, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	defer clo.Close()
	body, _ := takeClassBody(val)
	if body == nil {
		return nil, ErrBadSnapshot
	}
	sc, err := parseSavedClass(body)
	if err != nil {
		return nil, err
	}
	s.cache.Add(string(key), sc)
	return sc, nil
}

// PutBatch writes a whole batcher snapshot: every root class under its
// own key, the standalone fields under one key.
func (s *Store) PutBatch(saved *driftsync.SavedBatch) error {
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, sc := range saved.Classes {
		if err := batch.Set(classKey(sc.Type, sc.ID), appendSavedClass(nil, sc), nil); err != nil {
			return err
		}
	}
	if err := batch.Set(fieldsKey, appendSavedFields(nil, saved.Fields), nil); err != nil {
		return err
	}
	if err := s.db.Apply(batch, &writeOptions); err != nil {
		return errors.Wrap(err, "storing batch snapshot")
	}
	// committed; only now may the cache serve these trees
	for _, sc := range saved.Classes {
		s.cache.Add(string(classKey(sc.Type, sc.ID)), sc)
	}
	return nil
}

// GetBatch reads the whole stored snapshot back.
func (s *Store) GetBatch() (*driftsync.SavedBatch, error) {
	saved := &driftsync.SavedBatch{}
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{'C'},
		UpperBound: []byte{'D'},
	})
	if err != nil {
		return nil, err
	}
	for it.First(); it.Valid(); it.Next() {
		body, _ := takeClassBody(it.Value())
		if body == nil {
			s.log.Warn("bad class snapshot skipped", "key", string(it.Key()))
			continue
		}
		sc, e := parseSavedClass(body)
		if e != nil {
			s.log.Warn("bad class snapshot skipped", "key", string(it.Key()), "err", e)
			continue
		}
		saved.Classes = append(saved.Classes, sc)
	}
	if err := it.Close(); err != nil {
		return nil, err
	}
	val, clo, err := s.db.Get(fieldsKey)
	if err == nil {
		defer clo.Close()
		sfs, e := parseSavedFields(val)
		if e != nil {
			return nil, e
		}
		saved.Fields = sfs
	} else if err != pebble.ErrNotFound {
		return nil, err
	}
	return saved, nil
}
