package db

import (
	"database/sql"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

// SQLiteDriverName is the project-specific driver registration. Using our own
// name avoids clashing with other packages that register "sqlite3".
const SQLiteDriverName = "sqlite3_zametki"

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{})
}
