package taxonomy

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// SchemaVersion splits a schema identifier like
// "lasso.taxonomy.reasons/v1.0.0" into its family and semver parts.
func SchemaVersion(schema string) (family, version string, err error) {
	i := strings.LastIndex(schema, "/")
	if i < 0 {
		return "", "", fmt.Errorf("schema %q: missing version suffix", schema)
	}
	family, version = schema[:i], schema[i+1:]
	if family == "" {
		return "", "", fmt.Errorf("schema %q: missing family", schema)
	}
	if !semver.IsValid(version) {
		return "", "", fmt.Errorf("schema %q: %q is not a valid semantic version", schema, version)
	}
	return family, version, nil
}

// SchemaCompatible reports whether two schema identifiers share a family
// and major version. Documents from a different major need migration,
// not diffing.
func SchemaCompatible(a, b string) bool {
	fa, va, err := SchemaVersion(a)
	if err != nil {
		return false
	}
	fb, vb, err := SchemaVersion(b)
	if err != nil {
		return false
	}
	return fa == fb && semver.Major(va) == semver.Major(vb)
}
