// Package build reports version metadata for binaries. Release builds inject
// it as JSON with -ldflags; other builds fall back to what the Go toolchain
// records in the binary.
package build

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

const develVersion = "(devel)"

// injected is set at link time:
//
//	go build -ldflags "-X 'github.com/amp-labs/amp-fsm/build.injected={\"version\":\"v1.2.0\"}'"
var injected string //nolint:gochecknoglobals

// Info contains build metadata.
type Info struct {
	Version      string            `json:"version"`
	GitCommit    string            `json:"git_commit"` //nolint:tagliatelle
	GitDate      string            `json:"git_date"`   //nolint:tagliatelle
	Modified     bool              `json:"modified"`
	GoVersion    string            `json:"go_version"` //nolint:tagliatelle
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Parse deserializes injected build info.
// Returns (nil, false) if the input is empty, "{}", or fails to parse.
func Parse(js string) (*Info, bool) {
	if js == "" || js == "{}" {
		return nil, false
	}

	var info Info

	err := json.Unmarshal([]byte(js), &info)
	if err != nil {
		slog.Warn("Failed to parse build info from JSON",
			"data", js,
			"error", err)

		return nil, false
	}

	return &info, true
}

// FromBinary reads the metadata the toolchain embedded in the running binary.
func FromBinary() (*Info, bool) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, false
	}

	return fromBuildInfo(bi), true
}

func fromBuildInfo(bi *debug.BuildInfo) *Info {
	info := &Info{
		Version:      bi.Main.Version,
		GoVersion:    bi.GoVersion,
		Dependencies: make(map[string]string, len(bi.Deps)),
	}

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.GitCommit = setting.Value
		case "vcs.time":
			info.GitDate = setting.Value
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}

	for _, dep := range bi.Deps {
		info.Dependencies[dep.Path] = dep.Version
	}

	return info
}

// Current returns injected info when present, then the toolchain's.
func Current() *Info {
	if info, ok := Parse(injected); ok {
		return info
	}

	if info, ok := FromBinary(); ok {
		return info
	}

	return &Info{Version: develVersion}
}

// String renders a one-line version banner such as
// "v1.2.0 (3f2a1c9d0b7e, 2026-10-19T12:00:00Z, go1.25.0)".
func (i *Info) String() string {
	version := i.Version
	if version == "" {
		version = develVersion
	}

	var details []string

	if i.GitCommit != "" {
		commit := i.GitCommit
		if len(commit) > 12 {
			commit = commit[:12]
		}

		if i.Modified {
			commit += "-dirty"
		}

		details = append(details, commit)
	}

	if i.GitDate != "" {
		details = append(details, i.GitDate)
	}

	if i.GoVersion != "" {
		details = append(details, i.GoVersion)
	}

	if len(details) == 0 {
		return version
	}

	return fmt.Sprintf("%s (%s)", version, strings.Join(details, ", "))
}
