// Package buildinfo holds the version stamped into wheelfix binaries.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/wheelfix/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/wheelfix/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/wheelfix/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/wheelfix
package buildinfo

import "fmt"

var (
	// Version is the semantic version (e.g., "v0.3.0").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// Template returns the version template for cobra's --version output.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
