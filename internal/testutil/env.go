// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"runtime"
	"testing"
)

// MustSetenv sets key to value and returns a function restoring the previous state.
func MustSetenv(t testing.TB, key, value string) func() {
	t.Helper()
	restore := snapshotEnv(t, key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	return restore
}

// MustUnsetenv unsets key and returns a function restoring the previous state.
func MustUnsetenv(t testing.TB, key string) func() {
	t.Helper()
	restore := snapshotEnv(t, key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	return restore
}

// SetHomeDir points the platform's home variable (USERPROFILE on Windows,
// HOME elsewhere) at dir.
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()
	if runtime.GOOS == "windows" {
		return MustSetenv(t, "USERPROFILE", dir)
	}
	return MustSetenv(t, "HOME", dir)
}

// MustChdir changes into dir and returns a function changing back.
func MustChdir(t testing.TB, dir string) func() {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get current directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory to %s: %v", dir, err)
	}
	return func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("failed to restore directory to %s: %v", prev, err)
		}
	}
}

func snapshotEnv(t testing.TB, key string) func() {
	t.Helper()
	prev, had := os.LookupEnv(key)
	return func() {
		var err error
		if had {
			err = os.Setenv(key, prev)
		} else {
			err = os.Unsetenv(key)
		}
		if err != nil {
			t.Errorf("failed to restore env %s: %v", key, err)
		}
	}
}
