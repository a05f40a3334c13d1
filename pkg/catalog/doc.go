// Package catalog implements the Store interface defined in store.go
// against github.com/mattn/go-sqlite3. See store.go for the operation
// contract and schema.go for the on-disk layout.
package catalog
