package models

// SyncOutcome describes what the transfer delegate did to reconcile a destination entry with its source.
type SyncOutcome int

const (
	FileCopied SyncOutcome = iota
	FileUpdated
	UpToDate
	SymlinkCreated
	SymlinkUpdated
	DirectoryCreated
)

func (o SyncOutcome) String() string {
	switch o {
	case FileCopied:
		return "file_copied"
	case FileUpdated:
		return "file_updated"
	case UpToDate:
		return "up_to_date"
	case SymlinkCreated:
		return "symlink_created"
	case SymlinkUpdated:
		return "symlink_updated"
	case DirectoryCreated:
		return "directory_created"
	default:
		return ""
	}
}
