// Package version holds the build version string.
package version

// Version is overridden at link time:
//
//	go build -ldflags "-X descry/pkg/version.Version=v1.2.3"
var Version = "dev"
