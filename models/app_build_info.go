// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "fmt"

// AppBuildInfo carries immutable build-time metadata embedded into the
// binaries. Values are injected by linker flags and shown in version
// output for release traceability.
type AppBuildInfo struct {
	// Version is the semantic version string of the build.
	Version string

	// Date is the build timestamp string.
	Date string

	// Commit is the source-control commit hash used for the build.
	Commit string
}

// NewAppBuildInfo constructs [AppBuildInfo], substituting "N/A" for
// values the build did not inject.
func NewAppBuildInfo(version, date, commit string) AppBuildInfo {
	return AppBuildInfo{
		Version: orNA(version),
		Date:    orNA(date),
		Commit:  orNA(commit),
	}
}

// String renders the three fields in the canonical version-output form.
func (a AppBuildInfo) String() string {
	return fmt.Sprintf("Build version: %s\nBuild date: %s\nBuild commit: %s", a.Version, a.Date, a.Commit)
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
