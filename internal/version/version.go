// Package version carries build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/doeshing/gadget-go/internal/version.Version=v0.3.0"
package version

var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)
