package cache

import (
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Kind string

const (
	Incidents         Kind = "incidents"
	EmergencyContacts Kind = "emergency-contacts"

	keyPrefix = "rightguard-"
)

// StorageKey is the fixed key the blob for kind is stored under
func (k Kind) StorageKey() string {
	return keyPrefix + string(k)
}

// Cache persists the whole set of entities of a kind. Load fails soft: a missing
// or unreadable blob leaves out untouched and is only logged.
type Cache interface {
	Load(kind Kind, out interface{})
	Save(kind Kind, entities interface{}) error
	// Clear drops every kind stored for the scope
	Clear() error
}

// decode unmarshals data into a fresh value and only then copies it into out,
// a blob that fails half way never leaves partial entities behind.
func decode(data []byte, out interface{}) error {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return errors.Errorf("cannot decode into %T", out)
	}

	fresh := reflect.New(target.Elem().Type())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return err
	}

	target.Elem().Set(fresh.Elem())
	return nil
}

func logLoadFailure(logg *zap.SugaredLogger, kind Kind, err error) {
	logg.Warnf("%vunable to load %v, using empty set: %v", prefix, kind.StorageKey(), err)
}
