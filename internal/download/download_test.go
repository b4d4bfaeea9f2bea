package download

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leszamis/modsync/internal/testutil"
)

// TestValidatePath_WithTempDirs tests path traversal protection with real filesystem paths
func TestValidatePath_WithTempDirs(t *testing.T) {
	tempBase := t.TempDir()

	subDir := filepath.Join(tempBase, "sub")
	testutil.MkdirAll(t, subDir)

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{
			name:    "file in base",
			target:  filepath.Join(tempBase, "file.txt"),
			wantErr: false,
		},
		{
			name:    "file in subdirectory",
			target:  filepath.Join(subDir, "file.txt"),
			wantErr: false,
		},
		{
			name:    "attempt to escape via ..",
			target:  filepath.Join(tempBase, "..", "outside.txt"),
			wantErr: true,
		},
		{
			name:    "deep nesting then escape",
			target:  filepath.Join(tempBase, "a", "b", "..", "..", "..", "x"),
			wantErr: true,
		},
		{
			name:    "sibling sharing the prefix",
			target:  tempBase + "-evil" + string(filepath.Separator) + "file.txt",
			wantErr: true,
		},
		{
			name:    "attempt to use temp root",
			target:  filepath.Join(os.TempDir(), "outside.txt"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePath(tempBase, tt.target)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidatePath() expected error, got nil")
				} else if !strings.Contains(err.Error(), "traversal") {
					t.Errorf("ValidatePath() error = %v, want traversal", err)
				}
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidatePath() unexpected error: %v", err)
			}
		})
	}
}

// TestFile_Success tests a plain download into an existing directory
func TestFile_Success(t *testing.T) {
	srv := testutil.NewFileServer(t)
	srv.Set("/mods/new.jar", "jar-bytes")

	dir := t.TempDir()
	target := filepath.Join(dir, "new.jar")

	client := NewClient(Config{Timeout: 5 * time.Second, UserAgent: "modsync-test"})
	if err := client.File(context.Background(), srv.URL("/mods/new.jar"), target); err != nil {
		t.Fatalf("File() error = %v", err)
	}

	testutil.AssertFileContent(t, target, "jar-bytes")
	if got := testutil.ListDir(t, dir); len(got) != 1 {
		t.Errorf("directory contains %v, want only new.jar", got)
	}
}

// TestFile_Overwrites tests that an existing file is replaced, never resumed
func TestFile_Overwrites(t *testing.T) {
	srv := testutil.NewFileServer(t)
	srv.Set("/a.jar", "fresh content")

	dir := t.TempDir()
	target := filepath.Join(dir, "a.jar")
	testutil.WriteFile(t, target, "stale")

	client := NewClient(Config{Timeout: 5 * time.Second})
	if err := client.File(context.Background(), srv.URL("/a.jar"), target); err != nil {
		t.Fatalf("File() error = %v", err)
	}
	testutil.AssertFileContent(t, target, "fresh content")
}

// TestFile_HTTPError tests that a failed response leaves no file behind
func TestFile_HTTPError(t *testing.T) {
	srv := testutil.NewFileServer(t)
	srv.SetStatus("/broken.jar", http.StatusInternalServerError, "boom")

	dir := t.TempDir()
	target := filepath.Join(dir, "broken.jar")

	client := NewClient(Config{Timeout: 5 * time.Second})
	if err := client.File(context.Background(), srv.URL("/broken.jar"), target); err == nil {
		t.Fatal("File() expected error for 500 response")
	}

	testutil.AssertFileNotExists(t, target)
	if got := testutil.ListDir(t, dir); len(got) != 0 {
		t.Errorf("directory contains %v after failed download, want empty", got)
	}
}

// TestFile_NotFound tests a missing remote file
func TestFile_NotFound(t *testing.T) {
	srv := testutil.NewFileServer(t)
	target := filepath.Join(t.TempDir(), "missing.jar")

	client := NewClient(Config{Timeout: 5 * time.Second})
	if err := client.File(context.Background(), srv.URL("/missing.jar"), target); err == nil {
		t.Fatal("File() expected error for 404 response")
	}
	testutil.AssertFileNotExists(t, target)
}

// TestFile_MissingDirectory tests downloading into a folder that does not exist
func TestFile_MissingDirectory(t *testing.T) {
	srv := testutil.NewFileServer(t)
	srv.Set("/a.jar", "x")

	target := filepath.Join(t.TempDir(), "nope", "a.jar")
	client := NewClient(Config{Timeout: 5 * time.Second})
	if err := client.File(context.Background(), srv.URL("/a.jar"), target); err == nil {
		t.Fatal("File() expected error for missing directory")
	}
}

// TestFile_Timeout tests the per-file timeout
func TestFile_Timeout(t *testing.T) {
	srv := testutil.NewFileServer(t)
	srv.SetSlow("/slow.jar", "late", 2*time.Second)

	dir := t.TempDir()
	target := filepath.Join(dir, "slow.jar")

	client := NewClient(Config{Timeout: 100 * time.Millisecond})
	start := time.Now()
	err := client.File(context.Background(), srv.URL("/slow.jar"), target)
	if err == nil {
		t.Fatal("File() expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Logf("File() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Errorf("File() took %v, want it bounded by the timeout", elapsed)
	}
	testutil.AssertFileNotExists(t, target)
}

// TestFile_TLSVerification tests that certificates are verified unless disabled
func TestFile_TLSVerification(t *testing.T) {
	srv := testutil.NewTLSFileServer(t)
	srv.Set("/secure.jar", "secure")

	t.Run("verified by default", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "secure.jar")
		client := NewClient(Config{Timeout: 5 * time.Second})
		if err := client.File(context.Background(), srv.URL("/secure.jar"), target); err == nil {
			t.Fatal("File() expected certificate error for self-signed server")
		}
		testutil.AssertFileNotExists(t, target)
	})

	t.Run("insecure opt-in", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "secure.jar")
		client := NewClient(Config{Timeout: 5 * time.Second, InsecureSkipVerify: true})
		if err := client.File(context.Background(), srv.URL("/secure.jar"), target); err != nil {
			t.Fatalf("File() error = %v", err)
		}
		testutil.AssertFileContent(t, target, "secure")
	})
}

// TestFileWithProgress tests that the callback ends at 100
func TestFileWithProgress(t *testing.T) {
	srv := testutil.NewFileServer(t)
	srv.Set("/p.jar", strings.Repeat("x", 4096))

	target := filepath.Join(t.TempDir(), "p.jar")
	client := NewClient(Config{Timeout: 5 * time.Second})

	var last int
	calls := 0
	err := client.FileWithProgress(context.Background(), srv.URL("/p.jar"), target, func(done, total int64, pct int) {
		calls++
		last = pct
	})
	if err != nil {
		t.Fatalf("FileWithProgress() error = %v", err)
	}
	if calls == 0 || last != 100 {
		t.Errorf("callback calls = %d, last = %d, want final 100", calls, last)
	}
}
