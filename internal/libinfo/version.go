/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo provides information about the library build (version) for metrics.
package libinfo

import (
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const moduleName = "github.com/acronis/go-throttle"

// PrometheusLibVersionLabel is the name of the constant label with the library version.
const PrometheusLibVersionLabel = "go_throttle_version"

const unknownVersion = "v0.0.0"

var modulePathRe = regexp.MustCompile(`^` + regexp.QuoteMeta(moduleName) + `(/v[0-9]+)?$`)

// AddPrometheusLibVersionLabel returns a copy of labels with the library version label added.
func AddPrometheusLibVersionLabel(labels prometheus.Labels) prometheus.Labels {
	res := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		res[k] = v
	}
	res[PrometheusLibVersionLabel] = GetLibVersion()
	return res
}

var (
	libVersion     string
	libVersionOnce sync.Once
)

// GetLibVersion returns the version of the library the binary is built with.
func GetLibVersion() string {
	libVersionOnce.Do(func() {
		buildInfo, _ := debug.ReadBuildInfo()
		libVersion = versionFromBuildInfo(buildInfo)
	})
	return libVersion
}

// versionFromBuildInfo looks for the library (of any major version) among the main module and its dependencies.
func versionFromBuildInfo(buildInfo *debug.BuildInfo) string {
	if buildInfo == nil {
		return unknownVersion
	}
	modules := append([]*debug.Module{&buildInfo.Main}, buildInfo.Deps...)
	for _, m := range modules {
		if m != nil && modulePathRe.MatchString(m.Path) && m.Version != "" && m.Version != "(devel)" {
			return m.Version
		}
	}
	return unknownVersion
}
