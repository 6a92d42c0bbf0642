package app

import (
	"log/slog"
	"runtime"
	"runtime/debug"
)

// Stamped at release time, e.g.
// -ldflags "-X github.com/wwfxuk/shotgunEvents/internal/app.version=1.4.0".
// Unset values fall back to the VCS data embedded by the Go toolchain.
var (
	version   = "dev"
	commit    string
	buildTime string
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	Time      string
	GoVersion string
	Modified  bool
}

// CurrentBuild returns the build stamp of this binary.
func CurrentBuild() BuildInfo {
	info, _ := debug.ReadBuildInfo()
	return buildFrom(info)
}

func buildFrom(info *debug.BuildInfo) BuildInfo {
	b := BuildInfo{Version: version, Commit: commit, Time: buildTime, GoVersion: runtime.Version()}
	if info == nil {
		return b
	}
	if b.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Time == "" {
				b.Time = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

// String is the short form reported by /health and relayctl --version,
// e.g. "1.4.0+3f9c2ab41d07-dirty".
func (b BuildInfo) String() string {
	s := b.Version
	if b.Commit == "" {
		return s
	}
	c := b.Commit
	if len(c) > 12 {
		c = c[:12]
	}
	s += "+" + c
	if b.Modified {
		s += "-dirty"
	}
	return s
}

// LogValue implements slog.LogValuer.
func (b BuildInfo) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("version", b.Version),
		slog.String("go", b.GoVersion),
	}
	if b.Commit != "" {
		attrs = append(attrs, slog.String("commit", b.Commit), slog.Bool("modified", b.Modified))
	}
	if b.Time != "" {
		attrs = append(attrs, slog.String("built", b.Time))
	}
	return slog.GroupValue(attrs...)
}
