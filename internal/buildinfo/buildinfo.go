// Package buildinfo carries build-time metadata injected at link time,
// kept separate from user configuration.
package buildinfo

// Version holds the Git version tag, set via -ldflags at build time.
var Version = "dev"

// BuildDate is the time the binary was built, set via -ldflags.
var BuildDate = "unknown"

// Context bundles build metadata for components that want an injected
// value instead of reading package globals.
type Context struct {
	Version   string
	BuildDate string
}

// Current returns a Context populated from the link-time values.
func Current() Context {
	return Context{Version: Version, BuildDate: BuildDate}
}

// GetVersion returns the build version, or "unknown" when unset.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return "unknown"
	}
	return c.Version
}

// GetBuildDate returns the build date, or "unknown" when unset.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return "unknown"
	}
	return c.BuildDate
}
