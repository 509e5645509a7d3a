package sqlite

import "github.com/felixgeelhaar/codementor/internal/session"

// Ensure SQLite stores implement the storage interfaces
var _ session.SessionStore = (*SessionStore)(nil)
