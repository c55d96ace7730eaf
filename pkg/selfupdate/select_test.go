package selfupdate

import "testing"

func TestSelectAssetMatchesPlatformArchAndPrefix(t *testing.T) {
	assets := []ReleaseAsset{
		{Name: "duckctl-linux-amd64"},
		{Name: "duckctl-linux-arm64"},
		{Name: "duckctl-darwin-arm64"},
		{Name: "other-tool-linux-amd64"},
	}
	a, err := SelectAsset(assets, "duckctl", "linux", "amd64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Name != "duckctl-linux-amd64" {
		t.Fatalf("got %q, want duckctl-linux-amd64", a.Name)
	}
}

func TestSelectAssetErrorsWhenNoneMatch(t *testing.T) {
	assets := []ReleaseAsset{{Name: "duckctl-windows-amd64"}}
	if _, err := SelectAsset(assets, "duckctl", "linux", "amd64"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestHasUpdateComparesSemver(t *testing.T) {
	if !HasUpdate("1.2.0", "1.3.0") {
		t.Fatal("expected update available")
	}
	if HasUpdate("1.3.0", "1.2.0") {
		t.Fatal("expected no update (downgrade)")
	}
	if HasUpdate("1.2.0", "1.2.0") {
		t.Fatal("expected no update (equal)")
	}
}

func TestHasUpdateFallsBackToStringCompareOnUnparsableVersion(t *testing.T) {
	if !HasUpdate("dev", "1.0.0") {
		t.Fatal("expected unparsable current to be treated as an update")
	}
	if HasUpdate("dev", "dev") {
		t.Fatal("expected identical unparsable strings to report no update")
	}
}
