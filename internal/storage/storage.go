// Package storage provides the memory, file and relational record stores.
// Every store implements records.Store and users.Repository.
package storage

import (
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/users"
)

// Driver names a storage backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Backend is the combined record store and owner repository.
type Backend interface {
	records.Store
	users.Repository
}

// Options carries the collaborators shared by every store.
type Options struct {
	IDProvider records.IDProvider
	Clock      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.IDProvider == nil {
		o.IDProvider = records.NewUUIDProvider()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

func (o Options) now() time.Time {
	return o.Clock().UTC()
}

var (
	_ Backend = (*MemoryStore)(nil)
	_ Backend = (*FileStore)(nil)
	_ Backend = (*GormStore)(nil)
)
