package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leszamis/modsync/internal/reconcile"
)

func TestBuild(t *testing.T) {
	when := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)

	t.Run("mixed outcomes", func(t *testing.T) {
		outcomes := []reconcile.Outcome{
			{Kind: reconcile.KindRemoved, Name: "old.jar"},
			{Kind: reconcile.KindSkipNotFound, Name: "gone.jar"},
			{Kind: reconcile.KindDownloaded, Name: "new.jar"},
			{Kind: reconcile.KindDownloadFailed, Name: "bad.jar", Err: errors.New("404 Not Found")},
		}

		got := Build(outcomes, Info{Instance: "Les ZAMIS 1", Folder: "/mods", When: when})

		for _, want := range []string{
			"Mod Sync Report",
			"Instance: Les ZAMIS 1",
			"Folder: /mods",
			"Completed: 2024-05-01 14:30:00",
			"Total: 4 files (1 removed, 1 skipped, 1 downloaded, 1 failed)",
			"Installed (1 files):\n  + new.jar",
			"Removed (1 files):\n  - old.jar",
			"Failed (1):\n  ! bad.jar: 404 Not Found",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("Build() missing %q in:\n%s", want, got)
			}
		}
	})

	t.Run("folder not found without error", func(t *testing.T) {
		outcomes := []reconcile.Outcome{{Kind: reconcile.KindFolderNotFound, Name: "/missing"}}
		got := Build(outcomes, Info{When: when})

		if !strings.Contains(got, "! /missing: folder-not-found") {
			t.Errorf("Build() = %s", got)
		}
		if strings.Contains(got, "Instance:") {
			t.Error("Build() printed an empty instance")
		}
	})

	t.Run("empty run", func(t *testing.T) {
		got := Build(nil, Info{When: when})
		if !strings.Contains(got, "Total: 0 files") {
			t.Errorf("Build() = %s", got)
		}
		if strings.Contains(got, "Detailed file changes") {
			t.Error("Build() should skip the detail section for an empty run")
		}
	})
}

func TestCount(t *testing.T) {
	outcomes := []reconcile.Outcome{
		{Kind: reconcile.KindRemoved},
		{Kind: reconcile.KindRemoved},
		{Kind: reconcile.KindSkipNotFound},
		{Kind: reconcile.KindRemovalFailed},
		{Kind: reconcile.KindDownloaded},
		{Kind: reconcile.KindFolderNotFound},
		{Kind: reconcile.KindDownloadFailed},
	}

	got := Count(outcomes)
	want := Counts{Removed: 2, Skipped: 1, Downloaded: 1, Failed: 3}
	if got != want {
		t.Errorf("Count() = %+v, want %+v", got, want)
	}
	if got.Total() != len(outcomes) {
		t.Errorf("Total() = %d, want %d", got.Total(), len(outcomes))
	}

	if unknown := Count([]reconcile.Outcome{{Kind: reconcile.Kind(99)}}); unknown.Total() != 0 {
		t.Errorf("Count(unknown kind) = %+v, want nothing counted", unknown)
	}
}
