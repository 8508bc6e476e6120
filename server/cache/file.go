package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/utils"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

var prefix = colors.Prefix("cache")

// FileCache stores one json file per kind under dir
type FileCache struct {
	dir  string
	mu   sync.Mutex
	logg *zap.SugaredLogger
}

func NewFileCache(dir string, logg *zap.SugaredLogger) (*FileCache, error) {
	if err := utils.CreateDirIfNotExist(dir); err != nil {
		return nil, pkgerrors.Wrap(err, "NewFileCache")
	}
	return &FileCache{dir: dir, logg: logger.OrDefault(logg)}, nil
}

func (fc *FileCache) Dir() string {
	return fc.dir
}

func (fc *FileCache) path(kind Kind) string {
	return filepath.Join(fc.dir, kind.StorageKey()+".json")
}

func (fc *FileCache) Load(kind Kind, out interface{}) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	data, err := os.ReadFile(fc.path(kind))
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		logLoadFailure(fc.logg, kind, err)
		return
	}

	if err := decode(data, out); err != nil {
		logLoadFailure(fc.logg, kind, err)
	}
}

// Clear removes dir along with every blob in it
func (fc *FileCache) Clear() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	return pkgerrors.Wrapf(os.RemoveAll(fc.dir), "clear %v", fc.dir)
}

// Save overwrites the blob for kind, writing to a temp file first so a crash
// never leaves a half written blob behind.
func (fc *FileCache) Save(kind Kind, entities interface{}) error {
	data, err := json.Marshal(entities)
	if err != nil {
		return pkgerrors.Wrapf(err, "encode %v", kind)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	tmp, err := os.CreateTemp(fc.dir, kind.StorageKey()+"-*.tmp")
	if err != nil {
		return pkgerrors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return pkgerrors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return pkgerrors.Wrap(err, "close temp file")
	}

	return pkgerrors.Wrapf(os.Rename(tmp.Name(), fc.path(kind)), "save %v", kind)
}
