// Package version holds build metadata reported by "annotations version".
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	// Version is the application version, set via ldflags.
	Version string
	// BuildDate is when the binary was built, set via ldflags.
	BuildDate string
)

// Info describes one build of the tool.
type Info struct {
	Version   string `json:"version"             yaml:"version"`
	Revision  string `json:"revision"            yaml:"revision"`
	BuildDate string `json:"buildDate,omitempty" yaml:"buildDate,omitempty"`
	GoVersion string `json:"goVersion"           yaml:"goVersion"`
	Platform  string `json:"platform"            yaml:"platform"`
}

// Get returns the metadata of the running binary. Values not set via
// ldflags fall back to the module build info.
func Get() Info {
	info := Info{
		Version:   Version,
		Revision:  "unknown",
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info.withDefaults()
	}

	if info.Version == "" {
		info.Version = bi.Main.Version
	}

	info.Revision = revision(bi.Settings)

	return info.withDefaults()
}

func (i Info) withDefaults() Info {
	if i.Version == "" || i.Version == "(devel)" {
		i.Version = "dev"
	}

	return i
}

// String formats the info on one line, e.g.
// "annotations v1.2.0 (abc1234, go1.25.0 linux/amd64)".
func (i Info) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "annotations %s (%s", i.Version, shortRevision(i.Revision))

	if i.BuildDate != "" {
		fmt.Fprintf(&sb, ", built %s", i.BuildDate)
	}

	fmt.Fprintf(&sb, ", %s %s)", i.GoVersion, i.Platform)

	return sb.String()
}

func revision(settings []debug.BuildSetting) string {
	rev := "unknown"
	modified := false

	for _, v := range settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value
		case "vcs.modified":
			modified = v.Value == "true"
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}

func shortRevision(rev string) string {
	base, dirty := strings.CutSuffix(rev, "-dirty")
	if len(base) > 12 {
		base = base[:12]
	}

	if dirty {
		return base + "-dirty"
	}

	return base
}
