package buildinfo

// Populated via -ldflags at build time, e.g.
//
//	go build -ldflags "-X .../internal/buildinfo.Version=v1.2.3"
var (
	Version   = "dev"
	Revision  = "unknown"
	BuildDate = "unknown"
)
