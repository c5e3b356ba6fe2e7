package transapi

const (
	// Name is the application name.
	Name = "transapi"

	// Description is a short description of the application.
	Description = "Cached lookups against a remote translation service"

	// Repository is the source code repository URL.
	Repository = "https://github.com/ZaguanLabs/transapi"
)

// Build information, set via ldflags for releases:
//
//	go build -ldflags "-X github.com/ZaguanLabs/transapi.Version=1.0.0 -X github.com/ZaguanLabs/transapi.GitCommit=$(git rev-parse HEAD)"
var (
	// Version is the semantic version of the application.
	Version = "0.1.0"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// FullVersion returns the version string with the short commit appended when known.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent returns the User-Agent sent to the translation service.
func UserAgent() string {
	return Name + "/" + FullVersion()
}
