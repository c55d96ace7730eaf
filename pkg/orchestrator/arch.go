package orchestrator

import (
	"runtime"
	"strings"
)

// archSuffixes lists every architecture-tag suffix the bundle naming
// convention uses: -arm64, -amd64, -x86_64 and -aarch64. Other
// spellings (such as -x86-64 or -arm) are not stripped.
var archSuffixes = []string{"-arm64", "-amd64", "-x86_64", "-aarch64"}

// HostArch returns the architecture suffix used to select this host's
// image tarballs from images/*.tar (spec §4.6.3).
func HostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "amd64"
	case "arm64":
		return "arm64"
	default:
		return runtime.GOARCH
	}
}

// stripArchSuffix removes a trailing architecture suffix from an
// image's tag portion only, never its repository name:
// "repo:latest-arm64" -> "repo:latest", "repo:1.2.3-amd64" -> "repo:1.2.3",
// "repo:latest" -> "repo:latest".
func stripArchSuffix(ref string) string {
	repo, tag, ok := strings.Cut(ref, ":")
	if !ok {
		return ref
	}
	for _, suffix := range archSuffixes {
		if strings.HasSuffix(tag, suffix) {
			return repo + ":" + tag[:len(tag)-len(suffix)]
		}
	}
	return ref
}
