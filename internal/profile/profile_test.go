package profile_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hyperengineering/chronolog/internal/profile"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		valid   bool
	}{
		{"simple", "work", true},
		{"digits", "client42", true},
		{"hyphen", "acme-corp", true},
		{"two segments", "acme/laptop", true},
		{"default", "default", true},
		{"empty", "", false},
		{"uppercase", "Work", false},
		{"three segments", "a/b/c", false},
		{"leading hyphen", "-work", false},
		{"trailing hyphen", "work-", false},
		{"double hyphen", "my--work", false},
		{"underscore", "my_work", false},
		{"trailing slash", "work/", false},
		{"too long segment", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := profile.Validate(tt.profile)
			if tt.valid && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tt.profile, err)
			}
			if !tt.valid && !errors.Is(err, profile.ErrInvalidProfile) {
				t.Errorf("Validate(%q) = %v, want ErrInvalidProfile", tt.profile, err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("explicit wins", func(t *testing.T) {
		t.Setenv(profile.EnvVar, "from-env")
		got, err := profile.Resolve("explicit")
		if err != nil || got != "explicit" {
			t.Errorf("Resolve(explicit) = %q, %v", got, err)
		}
	})
	t.Run("env", func(t *testing.T) {
		t.Setenv(profile.EnvVar, "from-env")
		got, err := profile.Resolve("")
		if err != nil || got != "from-env" {
			t.Errorf("Resolve() = %q, %v", got, err)
		}
	})
	t.Run("default", func(t *testing.T) {
		t.Setenv(profile.EnvVar, "")
		got, err := profile.Resolve("")
		if err != nil || got != profile.Default {
			t.Errorf("Resolve() = %q, %v", got, err)
		}
	})
	t.Run("invalid explicit", func(t *testing.T) {
		if _, err := profile.Resolve("BAD"); !errors.Is(err, profile.ErrInvalidProfile) {
			t.Errorf("Resolve(BAD) error = %v", err)
		}
	})
	t.Run("invalid env", func(t *testing.T) {
		t.Setenv(profile.EnvVar, "no way")
		_, err := profile.Resolve("")
		if !errors.Is(err, profile.ErrInvalidProfile) {
			t.Errorf("Resolve() error = %v", err)
		}
		if err != nil && !strings.Contains(err.Error(), profile.EnvVar) {
			t.Errorf("error should mention %s: %v", profile.EnvVar, err)
		}
	})
}

func TestEncodeDecode(t *testing.T) {
	for _, name := range []string{"work", "acme/laptop"} {
		enc := profile.Encode(name)
		if strings.Contains(enc, "/") {
			t.Errorf("Encode(%q) = %q contains a slash", name, enc)
		}
		if dec := profile.Decode(enc); dec != name {
			t.Errorf("roundtrip %q -> %q -> %q", name, enc, dec)
		}
	}
}

func TestRootAndDir(t *testing.T) {
	if root := profile.Root(); !strings.Contains(root, filepath.Join(".chronolog", "profiles")) {
		t.Errorf("Root() = %q", root)
	}
	got := profile.Dir("/data", "acme/laptop")
	if want := filepath.Join("/data", "acme__laptop"); got != want {
		t.Errorf("Dir() = %q, want %q", got, want)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"work", "acme__laptop", "Not_Valid"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := profile.List(root)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if diff := cmp.Diff([]string{"acme/laptop", "work"}, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	missing, err := profile.List(filepath.Join(root, "nope"))
	if err != nil || missing != nil {
		t.Errorf("List(missing) = %v, %v", missing, err)
	}
}
