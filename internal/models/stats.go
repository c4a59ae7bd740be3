package models

// Stats aggregates the progress of one sync run.
type Stats struct {
	Entries         int   `json:"entries"`
	NumFiles        int   `json:"num_files"`
	TotalSize       int64 `json:"total_size"`
	Synced          int   `json:"synced"`
	Copied          int   `json:"copied"`
	Updated         int   `json:"updated"`
	UpToDate        int   `json:"up_to_date"`
	SymlinksCreated int   `json:"symlinks_created"`
	SymlinksUpdated int   `json:"symlinks_updated"`
	DirsCreated     int   `json:"dirs_created"`
	BytesCopied     int64 `json:"bytes_copied"`
}

// Add counts one finished entry.
func (s *Stats) Add(outcome SyncOutcome) {
	s.Synced++
	switch outcome {
	case FileCopied:
		s.Copied++
	case FileUpdated:
		s.Updated++
	case UpToDate:
		s.UpToDate++
	case SymlinkCreated:
		s.SymlinksCreated++
	case SymlinkUpdated:
		s.SymlinksUpdated++
	case DirectoryCreated:
		s.DirsCreated++
	}
}

// Symlinks is the number of symlinks created or updated.
func (s Stats) Symlinks() int {
	return s.SymlinksCreated + s.SymlinksUpdated
}
