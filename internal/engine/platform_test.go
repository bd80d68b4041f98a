package engine

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestU_ResolveLibrary(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		goarch   string
		wantPath string
		wantErr  bool
	}{
		{"[Unit] Resolve: darwin arm64", "darwin", "arm64", filepath.Join("lib", "macos_arm64", "libsignpdfkit.dylib"), false},
		{"[Unit] Resolve: darwin amd64", "darwin", "amd64", filepath.Join("lib", "macos_x86_64", "libsignpdfkit.dylib"), false},
		{"[Unit] Resolve: linux amd64", "linux", "amd64", filepath.Join("lib", "linux_x86_64", "libsignpdfkit.so"), false},
		{"[Unit] Resolve: linux 386", "linux", "386", filepath.Join("lib", "linux_i686", "libsignpdfkit.so"), false},
		{"[Unit] Resolve: linux arm", "linux", "arm", filepath.Join("lib", "linux_armv7", "libsignpdfkit.so"), false},
		{"[Unit] Resolve: windows amd64", "windows", "amd64", filepath.Join("lib", "windows_x64", "libsignpdfkit.dll"), false},
		{"[Unit] Resolve: windows arm64", "windows", "arm64", filepath.Join("lib", "windows_arm64", "libsignpdfkit.dll"), false},
		{"[Unit] Resolve: darwin 386", "darwin", "386", "", true},
		{"[Unit] Resolve: freebsd", "freebsd", "amd64", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib, err := ResolveLibrary("lib", tt.goos, tt.goarch)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveLibrary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedPlatform) {
					t.Errorf("error = %v, want ErrUnsupportedPlatform", err)
				}
				return
			}
			if lib.Path() != tt.wantPath {
				t.Errorf("Path() = %s, want %s", lib.Path(), tt.wantPath)
			}
		})
	}
}
