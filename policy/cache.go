package policy

import (
	"github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/thoughtnetwork/miniscript/miniscript"
	"github.com/thoughtnetwork/miniscript/miniscript/script"
)

// DiskCache memoizes compiled fragments on disk, keyed by their textual
// policy source, so repeated compilations of the same policy (across
// process restarts) skip straight to the encoded Script bytes.
type DiskCache[Pk miniscript.MiniscriptKey] struct {
	db    *badger.DB
	codec script.KeyCodec[Pk]
}

// OpenDiskCache opens (creating if absent) a badger store at dir.
func OpenDiskCache[Pk miniscript.MiniscriptKey](dir string, codec script.KeyCodec[Pk]) (*DiskCache[Pk], error) {
	db, err := badger.Open(badger.DefaultOptions(dir))
	if err != nil {
		return nil, errors.Wrap(err, "policy: opening compiler cache")
	}
	return &DiskCache[Pk]{db: db, codec: codec}, nil
}

func (c *DiskCache[Pk]) Close() error { return c.db.Close() }

// Get returns the cached compiled Script for policySrc, if present.
func (c *DiskCache[Pk]) Get(policySrc string) ([]byte, bool, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(policySrc))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "policy: reading compiler cache")
	}
	return out, out != nil, nil
}

// Put stores the encoded Script compiled from policySrc.
func (c *DiskCache[Pk]) Put(policySrc string, encoded []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(policySrc), encoded)
	})
	return errors.Wrap(err, "policy: writing compiler cache")
}
