package remux

import (
	"os"
	"testing"
)

func TestResolveUsesFFMPEGPathEnvVar(t *testing.T) {
	// A real file (this test binary itself) stands in for an
	// executable; Resolve only checks that the path exists.
	self, err := os.Executable()
	if err != nil {
		t.Skip("os.Executable unavailable in this environment")
	}
	t.Setenv("FFMPEG_PATH", self)

	path, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if path != self {
		t.Fatalf("Resolve() = %q, want %q", path, self)
	}
}

func TestResolveMissingFFMPEGPathIsRemuxUnavailable(t *testing.T) {
	t.Setenv("FFMPEG_PATH", "/nonexistent/path/to/ffmpeg-binary-that-does-not-exist")
	if _, err := Resolve(); err == nil {
		t.Fatal("expected RemuxUnavailable for a nonexistent FFMPEG_PATH")
	}
}

func TestResolveFallsBackToPATH(t *testing.T) {
	t.Setenv("FFMPEG_PATH", "")
	// Either ffmpeg is on PATH (succeeds) or it isn't (RemuxUnavailable);
	// both are valid outcomes in a test environment without the binary.
	_, err := Resolve()
	if err != nil {
		if _, ok := err.(interface{ Code() int }); !ok {
			t.Fatalf("expected a typed error, got %v", err)
		}
	}
}
