package selfupdate

import "github.com/Masterminds/semver/v3"

// HasUpdate reports whether latest is a strictly newer semver than
// current. Unparsable versions fall back to a plain string comparison
// so the caller can still proceed.
func HasUpdate(current, latest string) bool {
	curV, err := semver.NewVersion(current)
	if err != nil {
		return current != latest
	}
	latestV, err := semver.NewVersion(latest)
	if err != nil {
		return current != latest
	}
	return latestV.GreaterThan(curV)
}
