// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// set with -ldflags "-X github.com/powerdeck/powerdeck/internal/version.version=..."
var (
	version   string
	buildTime string
	gitCommit string
)

type VersionInfo struct {
	Version   string
	BuildTime string
	GitCommit string

	GoVersion string
	GoOS      string
	GoArch    string
}

// Info returns the version information; unset build values read as "unknown"
func Info() VersionInfo {
	return VersionInfo{
		Version:   orUnknown(version),
		BuildTime: orUnknown(buildTime),
		GitCommit: orUnknown(gitCommit),

		GoVersion: runtime.Version(),
		GoOS:      runtime.GOOS,
		GoArch:    runtime.GOARCH,
	}
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("powerdeck %s (commit %s, built %s) %s %s/%s",
		v.Version, v.GitCommit, v.BuildTime, v.GoVersion, v.GoOS, v.GoArch)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
