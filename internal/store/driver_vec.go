//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// sqlDriver selects the cgo driver when the sqlite-vec extension build is
// requested. vec.Auto() registers vec0 as an auto-loadable extension so ANN
// search is available to artifact tables.
const sqlDriver = "sqlite3"

func init() {
	vec.Auto()
}
