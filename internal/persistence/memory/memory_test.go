package memory_test

import (
	"testing"

	"github.com/example/salon-booking/internal/persistence"
	"github.com/example/salon-booking/internal/persistence/memory"
	"github.com/example/salon-booking/internal/persistence/persistencetest"
)

func TestStorageContract(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.Store {
		return memory.New()
	})
}
