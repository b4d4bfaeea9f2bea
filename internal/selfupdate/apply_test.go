package selfupdate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leszamis/modsync/internal/testutil"
)

type applyFixture struct {
	target   string
	payload  string
	marker   string
	launched []launchCall
}

func newApplyFixture(t *testing.T) *applyFixture {
	t.Helper()
	dir := t.TempDir()
	f := &applyFixture{
		target:  filepath.Join(dir, "modsync"),
		payload: filepath.Join(dir, "modsync_update"),
		marker:  filepath.Join(dir, "modsync.ready"),
	}
	testutil.WriteFile(t, f.target, "old-binary")
	testutil.WriteFile(t, f.payload, "new-binary-v2")
	return f
}

func (f *applyFixture) options() ApplyOptions {
	return ApplyOptions{
		Target:   f.target,
		Payload:  f.payload,
		Marker:   f.marker,
		Timeout:  2 * time.Second,
		Interval: 10 * time.Millisecond,
		Launch: func(path string, args []string, env []string) (int, error) {
			f.launched = append(f.launched, launchCall{path: path, args: args, env: env})
			return 1, nil
		},
	}
}

// TestApplyUpdate_Success tests the swap and relaunch
func TestApplyUpdate_Success(t *testing.T) {
	f := newApplyFixture(t)
	testutil.WriteFile(t, f.marker, "123")

	if err := ApplyUpdate(context.Background(), f.options()); err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}

	testutil.AssertFileContent(t, f.target, "new-binary-v2")
	testutil.AssertFileContent(t, f.target+".old", "old-binary")
	testutil.AssertFileNotExists(t, f.payload)
	testutil.AssertFileNotExists(t, f.marker)

	if len(f.launched) != 1 {
		t.Fatalf("launched %d processes, want 1", len(f.launched))
	}
	if f.launched[0].path != f.target {
		t.Errorf("relaunched %q, want %q", f.launched[0].path, f.target)
	}
	if len(f.launched[0].env) != 1 || f.launched[0].env[0] != CleanupEnv+"=1" {
		t.Errorf("relaunch env = %v, want %s=1", f.launched[0].env, CleanupEnv)
	}
}

// TestApplyUpdate_MarkerLate tests that the helper waits for a marker written after it starts
func TestApplyUpdate_MarkerLate(t *testing.T) {
	f := newApplyFixture(t)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(f.marker, []byte("123"), 0644)
	}()

	if err := ApplyUpdate(context.Background(), f.options()); err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	testutil.AssertFileContent(t, f.target, "new-binary-v2")
}

// TestApplyUpdate_MarkerTimeout tests that nothing is touched without the marker
func TestApplyUpdate_MarkerTimeout(t *testing.T) {
	f := newApplyFixture(t)
	opts := f.options()
	opts.Timeout = 100 * time.Millisecond

	err := ApplyUpdate(context.Background(), opts)
	if !errors.Is(err, ErrMarkerTimeout) {
		t.Fatalf("ApplyUpdate() error = %v, want ErrMarkerTimeout", err)
	}

	testutil.AssertFileContent(t, f.target, "old-binary")
	testutil.AssertFileContent(t, f.payload, "new-binary-v2")
	testutil.AssertFileNotExists(t, f.target+".old")
	if len(f.launched) != 0 {
		t.Errorf("launched %d processes after timeout, want 0", len(f.launched))
	}
}

// TestApplyUpdate_Rollback tests that a failed install restores the original
func TestApplyUpdate_Rollback(t *testing.T) {
	f := newApplyFixture(t)
	testutil.WriteFile(t, f.marker, "123")

	orig := rename
	rename = func(from, to string) error {
		if from == f.payload {
			return errors.New("disk full")
		}
		return orig(from, to)
	}
	t.Cleanup(func() { rename = orig })

	err := ApplyUpdate(context.Background(), f.options())
	if err == nil {
		t.Fatal("ApplyUpdate() expected error when the payload cannot be moved")
	}

	testutil.AssertFileContent(t, f.target, "old-binary")
	testutil.AssertFileNotExists(t, f.target+".old")
	testutil.AssertFileContent(t, f.payload, "new-binary-v2")

	if len(f.launched) != 1 || f.launched[0].path != f.target {
		t.Errorf("launched = %+v, want the restored executable relaunched", f.launched)
	}
}

// TestApplyUpdate_TargetLocked tests retrying the rename until the timeout
func TestApplyUpdate_TargetLocked(t *testing.T) {
	f := newApplyFixture(t)
	testutil.WriteFile(t, f.marker, "123")

	orig := rename
	attempts := 0
	rename = func(from, to string) error {
		if from == f.target {
			attempts++
			if attempts < 3 {
				return errors.New("file in use")
			}
		}
		return orig(from, to)
	}
	t.Cleanup(func() { rename = orig })

	if err := ApplyUpdate(context.Background(), f.options()); err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("rename attempts = %d, want 3", attempts)
	}
	testutil.AssertFileContent(t, f.target, "new-binary-v2")
}

// TestApplyUpdate_MissingPayload tests that the target is untouched without a payload
func TestApplyUpdate_MissingPayload(t *testing.T) {
	f := newApplyFixture(t)
	testutil.WriteFile(t, f.marker, "123")
	if err := os.Remove(f.payload); err != nil {
		t.Fatal(err)
	}

	if err := ApplyUpdate(context.Background(), f.options()); err == nil {
		t.Fatal("ApplyUpdate() expected error for missing payload")
	}
	testutil.AssertFileContent(t, f.target, "old-binary")
}

// TestApplyUpdate_SamePID tests that a helper running under the original pid does not wait for itself
func TestApplyUpdate_SamePID(t *testing.T) {
	f := newApplyFixture(t)
	testutil.WriteFile(t, f.marker, "123")

	opts := f.options()
	opts.ParentPID = os.Getpid()
	opts.Timeout = 5 * time.Second

	start := time.Now()
	if err := ApplyUpdate(context.Background(), opts); err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("ApplyUpdate() took %v, want no wait on its own pid", elapsed)
	}
	testutil.AssertFileContent(t, f.target, "new-binary-v2")
}

// TestOpenLog tests that the helper log sits next to the target and is appended to
func TestOpenLog(t *testing.T) {
	target := filepath.Join(t.TempDir(), "modsync")

	for _, line := range []string{"first\n", "second\n"} {
		f, err := OpenLog(target)
		if err != nil {
			t.Fatalf("OpenLog() error = %v", err)
		}
		if _, err := f.WriteString(line); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	testutil.AssertFileContent(t, filepath.Join(filepath.Dir(target), LogName), "first\nsecond\n")
}
