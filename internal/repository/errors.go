// Package repository holds the MySQL-backed stores.  Sentinel errors let the
// service layer tell "no such row" and "unique key hit" apart from real
// failures without inspecting driver types.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmailExists is returned by UserRepo.Create on a duplicate email.
	ErrEmailExists = errors.New("email already exists")
	// ErrDuplicatePayment means the provider payment id was already recorded.
	ErrDuplicatePayment = errors.New("payment already recorded")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
