package version

// Flag marks development builds. It is empty on release builds.
const Flag = "develop"

var (
	// Version is the full version string, including Flag and GitCommit.
	Version = "0.1.0"

	// GitCommit is set with --ldflags "-X
	// github.com/mosaicnetworks/streamlet/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	if Flag != "" {
		Version += "-" + Flag
	}

	if len(GitCommit) >= 8 {
		Version += "-" + GitCommit[:8]
	}
}
