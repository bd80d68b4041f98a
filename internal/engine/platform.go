// Package engine binds the native signpdfkit library.
package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// ErrUnsupportedPlatform is returned when no native build exists for the
// requested OS/architecture.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Library locates the native library on disk.
type Library struct {
	Dir      string // root directory holding one sub-directory per platform
	Platform string // e.g. "linux_x86_64"
	File     string // e.g. "libsignpdfkit.so"
}

// Path returns the full path of the library file.
func (l Library) Path() string {
	return filepath.Join(l.Dir, l.Platform, l.File)
}

type platformEntry struct {
	dir  string
	file string
}

var platforms = map[string]map[string]platformEntry{
	"darwin": {
		"amd64": {"macos_x86_64", "libsignpdfkit.dylib"},
		"arm64": {"macos_arm64", "libsignpdfkit.dylib"},
	},
	"linux": {
		"amd64": {"linux_x86_64", "libsignpdfkit.so"},
		"386":   {"linux_i686", "libsignpdfkit.so"},
		"arm64": {"linux_arm64", "libsignpdfkit.so"},
		"arm":   {"linux_armv7", "libsignpdfkit.so"},
	},
	"windows": {
		"amd64": {"windows_x64", "libsignpdfkit.dll"},
		"386":   {"windows_x86", "libsignpdfkit.dll"},
		"arm64": {"windows_arm64", "libsignpdfkit.dll"},
	},
}

// ResolveLibrary picks the native build for goos/goarch under libDir.
func ResolveLibrary(libDir, goos, goarch string) (Library, error) {
	entry, ok := platforms[goos][goarch]
	if !ok {
		return Library{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}
	return Library{Dir: libDir, Platform: entry.dir, File: entry.file}, nil
}

// ResolveHostLibrary resolves the library for the running process.
func ResolveHostLibrary(libDir string) (Library, error) {
	return ResolveLibrary(libDir, runtime.GOOS, runtime.GOARCH)
}
