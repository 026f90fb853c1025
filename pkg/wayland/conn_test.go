package wayland

import "testing"

func TestSocketPathFromEnv(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	t.Setenv("WAYLAND_DISPLAY", "wayland-1")
	got, err := socketPath()
	if err != nil {
		t.Fatalf("socketPath error: %v", err)
	}
	if got != "/run/user/1000/wayland-1" {
		t.Errorf("socketPath = %q", got)
	}
}

func TestSocketPathDefaultsDisplay(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	t.Setenv("WAYLAND_DISPLAY", "")
	got, err := socketPath()
	if err != nil {
		t.Fatalf("socketPath error: %v", err)
	}
	if got != "/run/user/1000/wayland-0" {
		t.Errorf("socketPath = %q, want the wayland-0 default", got)
	}
}

func TestSocketPathAbsoluteDisplay(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "/tmp/custom-wayland")
	got, err := socketPath()
	if err != nil {
		t.Fatalf("socketPath error: %v", err)
	}
	if got != "/tmp/custom-wayland" {
		t.Errorf("socketPath = %q, want the absolute path untouched", got)
	}
}

func TestSocketPathRequiresRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("WAYLAND_DISPLAY", "wayland-0")
	if _, err := socketPath(); err == nil {
		t.Error("socketPath should fail without XDG_RUNTIME_DIR")
	}
}
