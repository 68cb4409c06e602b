package utils

import "regexp"

// Matches the password segment of a user:password@host connection string.
var connPassword = regexp.MustCompile(`(:)([^:@]+)(@)`)

// MaskDSN blanks the password in a Postgres DSN so it is safe to log at
// startup.
func MaskDSN(dsn string) string {
	return connPassword.ReplaceAllString(dsn, ":***@")
}
