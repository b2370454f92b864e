// Package postgres persists identities and sealed provider credentials in
// PostgreSQL through a pgx connection pool.
//
// Schema changes ship as embedded goose migrations; call [Migrate] once at
// startup before serving. Upserts rely on the subject_id primary key, so two
// concurrent logins for the same identity resolve to a single row.
package postgres
