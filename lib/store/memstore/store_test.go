package memstore

import (
	"testing"

	"github.com/reslock/reslock/lib/store"
	storetesting "github.com/reslock/reslock/lib/store/testing"
)

func TestMemStore(t *testing.T) {
	storetesting.RunLockStoreTests(t, "memstore", func(t *testing.T) store.ILockStore {
		return NewMemStore()
	})
}
