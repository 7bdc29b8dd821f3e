// Package dummydb is an in-memory implementation of the repositories, used by tests and local runs.
package dummydb

import (
	"sync"

	"github.com/trezcool/cronograma/core/schedule"
	"github.com/trezcool/cronograma/core/user"
)

type (
	DB struct {
		user     *userTable
		schedule *scheduleTables
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	// subjects and events share a lock so that deletes cascade atomically.
	scheduleTables struct {
		sync.RWMutex
		subjects map[string]*schedule.Subject
		events   map[string]*schedule.Event
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		schedule: &scheduleTables{
			subjects: make(map[string]*schedule.Subject),
			events:   make(map[string]*schedule.Event),
		},
	}
}

// Flush empties every table.
func (db *DB) Flush() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.schedule.Lock()
	db.schedule.subjects = make(map[string]*schedule.Subject)
	db.schedule.events = make(map[string]*schedule.Event)
	db.schedule.Unlock()
}
