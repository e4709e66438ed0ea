// Package sql builds and executes parameterized data-modification commands
// against a single dialect.
//
// Commands are accumulated with the Inline types and rendered once against
// a dialect.Info, which decides placeholder syntax and parameter binding:
//
//	u := sql.NewUpdate("users", sql.WithTimeout(5*time.Second))
//	u.AddColumnModification(sql.NewColumnValue("name", "a8m"))
//	u.AddColumnModification(sql.NewColumnValue("age", 30))
//	u.AddCondition(sql.EQ("id", 1))
//	n, err := u.Execute(ctx, conn)
//	// UPDATE users SET name = @p0, age = @p1 WHERE id = @p2
//
// # Parameter Numbering
//
// Parameters are named p0, p1 and so on, in order: the SET (or VALUES)
// terms first and the WHERE conditions after them on the same counter. A
// condition that binds several values, such as In, suffixes its own name:
// p2_0, p2_1.
//
// # Safety
//
// An update or delete without conditions is rejected with a
// *typeddal.ContractError before any SQL is produced. An update without
// modifications affects no rows and is never sent to the database.
//
// # Execution
//
// Conn executes commands on a *sql.DB, *sql.Conn or *sql.Tx. StatsConn and
// DebugConn wrap any Execer with statistics and logging.
package sql
