// Package fileutil publishes finished artifacts to user-facing paths.
package fileutil
