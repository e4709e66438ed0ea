// Package typeddal holds the error kinds and cache contract shared by the
// typeddal packages.
//
// The library turns raw schema rows into validated table metadata and
// builds parameterized single-row commands from it:
//
//	info := sqlserver.New(dsn)
//	db, _ := info.OpenDB()
//	users, err := schema.LoadTable(ctx, info.Inspector(db), info, "dbo.users")
//	if err != nil {
//	    return err
//	}
//	id := users.IdentityColumn()
//	n, err := sql.NewUpdate(users.Name()).
//	    AddColumnModification(users.Column("name").Set("a8m")).
//	    AddCondition(id.EQ(42)).
//	    Execute(ctx, sql.NewConn(info, db))
//
// Errors are either user-correctable (a schema an operator must fix) or
// contract violations (a caller or driver broke an assumption). Use
// IsUserCorrectable and IsContractViolation to tell them apart.
package typeddal
