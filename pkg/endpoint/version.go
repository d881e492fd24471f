package endpoint

import (
	"fmt"

	masterminds "github.com/Masterminds/semver/v3"
)

const versionLogPrefix = "endpoint:version"

// VersionKey is the descriptor parameter carrying the implementation version.
const VersionKey = "version"

// MatchesVersion reports whether the descriptor's version parameter satisfies
// the given SemVer constraint (e.g. "^1.2.0", ">=2.0.0 <3.0.0"). A descriptor
// without a version parameter matches any constraint; an empty constraint
// matches any descriptor.
func (d *Descriptor) MatchesVersion(constraint string) (bool, error) {
	if constraint == "" {
		return true, nil
	}

	raw, ok := d.Parameter(VersionKey)
	if !ok {
		return true, nil
	}

	c, err := masterminds.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("%s - invalid constraint %q: %w", versionLogPrefix, constraint, err)
	}
	v, err := masterminds.NewVersion(raw)
	if err != nil {
		return false, fmt.Errorf("%s - invalid version %q: %w", versionLogPrefix, raw, err)
	}

	return c.Check(v), nil
}
