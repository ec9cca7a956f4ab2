// Package migration applies versioned SQL schema migrations.
//
// Migration files follow the {version}_{description}.sql naming convention and
// are embedded into the binary. Applied versions are tracked in the
// schema_migrations table; each file runs inside its own transaction.
package migration
