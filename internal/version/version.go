// Package version reports the build of the ares binary.
//
// Release builds stamp the variables with ldflags:
//
//	pkg=github.com/rickgao/ares/internal/version
//	go build -ldflags "-X $pkg.Version=$(git describe --tags) -X $pkg.Commit=$(git rev-parse --short HEAD) -X $pkg.BuildTime=$(date -u +%FT%TZ)" ./cmd/ares
//
// `ares -version` prints String.
package version

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown" // UTC, RFC 3339
)

// String formats the build as "version (commit) built time".
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
