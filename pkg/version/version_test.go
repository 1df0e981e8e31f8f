package version

import "testing"

func TestDefaults(t *testing.T) {
	if Version != "dev" {
		t.Errorf("default Version = %q, want %q", Version, "dev")
	}
	if GitCommit != "unknown" {
		t.Errorf("default GitCommit = %q, want %q", GitCommit, "unknown")
	}
	if !IsDev() {
		t.Error("IsDev() should be true for an unstamped build")
	}
}

func TestInfo(t *testing.T) {
	defer func(v, c, d string) { Version, GitCommit, BuildDate = v, c, d }(Version, GitCommit, BuildDate)

	Version, GitCommit, BuildDate = "v0.3.0", "abc1234", "2026-01-01T00:00:00Z"
	if got, want := Info(), "v0.3.0 (abc1234) built 2026-01-01T00:00:00Z"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	if IsDev() {
		t.Error("IsDev() should be false once stamped")
	}
}
