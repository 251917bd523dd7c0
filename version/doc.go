// Package version reports the build version of the gotemplate binary.
package version
