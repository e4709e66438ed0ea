// Package schema builds validated table metadata from raw schema rows.
//
// A Table is built once from the rows returned by a dialect.Inspector and
// never changes afterwards:
//
//	info := sqlserver.New(dsn)
//	db, _ := info.OpenDB()
//	users, err := schema.LoadTable(ctx, info.Inspector(db), info, "dbo.users")
//	if typeddal.IsUserCorrectable(err) {
//	    // The schema must be fixed, e.g. a nullable nvarchar column.
//	}
//	for _, c := range users.DataColumns() {
//	    fmt.Println(c.Name(), c.DataTypeName())
//	}
//
// Construction enforces the structural rules generated data access relies
// on: at most one identity column, at least one key column, at most one
// row-version column and no nullable character columns outside legacy
// tables. When an identity column exists it is the only key column.
//
// Validate, ValidateSchema and ValidateDiff report advisory issues and
// drift between two loads of the same tables.
package schema
