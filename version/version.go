package version

// overridden at build time via -ldflags
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

var FullVersion = func() string {
	ret := Version
	if GitCommit != "" {
		ret += " (" + GitCommit + ")"
	}
	return ret
}()
