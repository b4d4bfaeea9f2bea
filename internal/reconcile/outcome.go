package reconcile

// Kind tags a per-file reconciliation result
type Kind int

const (
	KindRemoved Kind = iota
	KindSkipNotFound
	KindRemovalFailed
	KindDownloaded
	KindDownloadFailed
	KindFolderNotFound
)

var kindNames = map[Kind]string{
	KindRemoved:        "removed",
	KindSkipNotFound:   "skip-not-found",
	KindRemovalFailed:  "removal-failed",
	KindDownloaded:     "downloaded",
	KindDownloadFailed: "download-failed",
	KindFolderNotFound: "folder-not-found",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Failed reports whether the kind represents an error the user should see
func (k Kind) Failed() bool {
	switch k {
	case KindRemovalFailed, KindDownloadFailed, KindFolderNotFound:
		return true
	}
	return false
}

// Outcome is one tagged result. Name is the file name, or the folder for KindFolderNotFound.
type Outcome struct {
	Kind Kind
	Name string
	Err  error
}

// String returns the event form used in console history, e.g. "removed:old.jar"
func (o Outcome) String() string {
	return o.Kind.String() + ":" + o.Name
}
