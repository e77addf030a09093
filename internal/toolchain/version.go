package toolchain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?)`)

// CompareVersions compares two version strings using semver.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
// A leading "v" is ignored.
func CompareVersions(a, b string) (int, error) {
	av, err := parseSemver(a)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", a, err)
	}
	bv, err := parseSemver(b)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", b, err)
	}
	return av.Compare(bv), nil
}

// SatisfiesMinimum reports whether version is at least minimum. Build
// suffixes such as the commit hash in "1.22.0-5e5a4fa2e" are ignored, so a
// locally built binary counts as its release. An empty minimum always passes.
func SatisfiesMinimum(version, minimum string) (bool, error) {
	if strings.TrimSpace(minimum) == "" {
		return true, nil
	}
	v, err := parseSemver(version)
	if err != nil {
		return false, fmt.Errorf("parsing version %q: %w", version, err)
	}
	c, err := semver.NewConstraint(">= " + strings.TrimPrefix(minimum, "v"))
	if err != nil {
		return false, fmt.Errorf("parsing minimum version %q: %w", minimum, err)
	}
	core, err := v.SetPrerelease("")
	if err != nil {
		return false, err
	}
	core, err = core.SetMetadata("")
	if err != nil {
		return false, err
	}
	return c.Check(&core), nil
}

// ParseVersionOutput extracts the first semantic version from the output of
// a --version flag, e.g. "sui 1.22.0-5e5a4fa2e" or "v20.11.1".
func ParseVersionOutput(output string) (string, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("no version found in %q", strings.TrimSpace(output))
	}
	return m[1], nil
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	return semver.NewVersion(version)
}
