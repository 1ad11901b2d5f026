package dummydb

import (
	"sync"

	"github.com/jpcaldeira/escolar/core/classgroup"
	"github.com/jpcaldeira/escolar/core/invoice"
	"github.com/jpcaldeira/escolar/core/student"
	"github.com/jpcaldeira/escolar/core/user"
)

// DB is an in-memory store backing the dummy repositories. It is meant for
// tests and local hacking, not for production.
type (
	DB struct {
		user       *userTable
		student    *studentTable
		classGroup *classGroupTable
		membership *membershipTable
		invoice    *invoiceTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	classGroupTable struct {
		sync.RWMutex
		table map[string]*classgroup.ClassGroup
	}

	// membershipTable maps class group ID -> set of student IDs
	membershipTable struct {
		sync.RWMutex
		table map[string]map[string]struct{}
	}

	invoiceTable struct {
		sync.RWMutex
		table map[string]*invoice.Invoice
	}
)

// Reset empties all tables; used between tests.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.student.Lock()
	db.student.table = make(map[string]*student.Student)
	db.student.Unlock()

	db.classGroup.Lock()
	db.classGroup.table = make(map[string]*classgroup.ClassGroup)
	db.classGroup.Unlock()

	db.membership.Lock()
	db.membership.table = make(map[string]map[string]struct{})
	db.membership.Unlock()

	db.invoice.Lock()
	db.invoice.table = make(map[string]*invoice.Invoice)
	db.invoice.Unlock()
}

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		student:    &studentTable{table: make(map[string]*student.Student)},
		classGroup: &classGroupTable{table: make(map[string]*classgroup.ClassGroup)},
		membership: &membershipTable{table: make(map[string]map[string]struct{})},
		invoice:    &invoiceTable{table: make(map[string]*invoice.Invoice)},
	}
	return db, nil
}
