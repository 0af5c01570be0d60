//go:build !sqlite_vec

package store

import (
	_ "modernc.org/sqlite"
)

// sqlDriver selects the pure-Go modernc driver for default builds.
const sqlDriver = "sqlite"
