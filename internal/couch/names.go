package couch

import "regexp"

// CouchDB database naming rule: must begin with a lowercase letter,
// then lowercase letters, digits, or _ $ ( ) + - /.
var dbNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_$()+/-]*$`)

// ValidateDatabaseName checks name against the server's naming rules
// locally, so an obviously invalid name never costs a round trip.
func ValidateDatabaseName(name string) error {
	if name == "" {
		return NewError(KindInvalidName, "database name is empty")
	}
	if !dbNamePattern.MatchString(name) {
		return NewError(KindInvalidName, "invalid database name %q: must start with a lowercase letter and contain only lowercase letters, digits, or _$()+-/", name)
	}
	return nil
}
