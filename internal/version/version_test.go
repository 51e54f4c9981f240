package version

import (
	"runtime/debug"
	"testing"
)

func TestInfoString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		info Info
		want string
	}{
		{name: "no commit", info: Info{Version: "v1.2.0"}, want: "v1.2.0"},
		{name: "short commit", info: Info{Version: "v1", Commit: "abc123"}, want: "v1 (abc123)"},
		{name: "long commit", info: Info{Version: "v1", Commit: "0123456789abcdef"}, want: "v1 (0123456789ab)"},
		{name: "dirty", info: Info{Version: "dev", Commit: "abc", Modified: true}, want: "dev (abc-dirty)"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.info.String(); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestFillFromBuildInfo(t *testing.T) {
	t.Parallel()

	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "deadbeef"},
			{Key: "vcs.time", Value: "2025-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	var info Info
	fillFromBuildInfo(&info, bi)
	want := Info{
		Version:   "v0.3.1",
		Commit:    "deadbeef",
		BuildTime: "2025-01-02T03:04:05Z",
		GoVersion: "go1.26.0",
		Modified:  true,
	}
	if info != want {
		t.Fatalf("got %+v want %+v", info, want)
	}

	pinned := Info{Version: "v9", Commit: "cafe"}
	fillFromBuildInfo(&pinned, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if pinned.Version != "v9" || pinned.Commit != "cafe" {
		t.Fatalf("ldflags values overwritten: %+v", pinned)
	}
}

func TestResolveNeverEmpty(t *testing.T) {
	t.Parallel()
	if Resolve().Version == "" {
		t.Fatal("Resolve returned an empty version")
	}
}
