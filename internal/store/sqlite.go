package store

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"modernc.org/sqlite"
)

// sqliteLowerFunc lowercases the full Unicode range. SQLite's built-in
// LOWER only folds ASCII, which would not match strings.ToLower on the
// search term.
const sqliteLowerFunc = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLowerFunc, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return nil, fmt.Errorf("%s: unsupported argument type %T", sqliteLowerFunc, v)
			}
		})
}

// lowerFunc is the SQL function used to lowercase text for case-insensitive
// matching on the store's driver.
func (s *Store) lowerFunc() string {
	if s.driver == DriverSQLite {
		return sqliteLowerFunc
	}
	return "LOWER"
}
