package types

type contextKey string

// DBKey carries the *sql.DB opened by a CLI command's Before hook.
const DBKey contextKey = "db"
