package store

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
)

var ErrDataDirLocked = eris.New("store: data directory is in use by another process")

const lockFile = ".northscrape.lock"

// LockDataDir takes an exclusive, non-blocking lock on dir so only one engine
// owns its history. The caller releases it with Unlock.
func LockDataDir(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "store: create data dir %s", dir)
	}
	fl := flock.New(filepath.Join(dir, lockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, eris.Wrapf(err, "store: lock %s", dir)
	}
	if !ok {
		return nil, eris.Wrapf(ErrDataDirLocked, "dir %s", dir)
	}
	return fl, nil
}
