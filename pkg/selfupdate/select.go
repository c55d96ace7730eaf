package selfupdate

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/duckclient/duck-cli/pkg/storage"
)

// CurrentPlatformArch reports the running OS/arch pair used to select a
// release asset (e.g. "linux", "amd64").
func CurrentPlatformArch() (platform, arch string) {
	return runtime.GOOS, runtime.GOARCH
}

// SelectAsset picks the asset whose name contains both platform and
// arch as substrings and begins with namePrefix, per spec §4.8 ("Asset
// selection prefers matches on platform/arch substring and an expected
// file prefix"). Returns a NotFound error if none match; when several
// match, the first one in assets order is returned.
func SelectAsset(assets []ReleaseAsset, namePrefix, platform, arch string) (ReleaseAsset, error) {
	var matches []ReleaseAsset
	for _, a := range assets {
		name := strings.ToLower(a.Name)
		if !strings.HasPrefix(name, strings.ToLower(namePrefix)) {
			continue
		}
		if !strings.Contains(name, strings.ToLower(platform)) {
			continue
		}
		if !strings.Contains(name, strings.ToLower(arch)) {
			continue
		}
		matches = append(matches, a)
	}
	switch len(matches) {
	case 0:
		return ReleaseAsset{}, storage.Wrap(storage.KindNotFound, "selfupdate.SelectAsset",
			fmt.Errorf("no asset matches prefix %q platform %q arch %q", namePrefix, platform, arch))
	case 1:
		return matches[0], nil
	default:
		return matches[0], nil
	}
}
