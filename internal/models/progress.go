package models

import "fmt"

// ProgressKind enumerates the [ProgressMessage] variants.
type ProgressKind int

const (
	Todo ProgressKind = iota
	StartSync
	Syncing
	DoneSyncing
)

func (k ProgressKind) String() string {
	switch k {
	case Todo:
		return "todo"
	case StartSync:
		return "start_sync"
	case Syncing:
		return "syncing"
	case DoneSyncing:
		return "done_syncing"
	default:
		return ""
	}
}

// ProgressMessage is an event published on the progress channel.
//
// Which fields are meaningful depends on Kind:
//   - [Todo] : Entries, NumFiles, TotalSize (running totals from the walker)
//   - [StartSync] : Description
//   - [Syncing] : Description, Size, Done (bytes for the file being copied)
//   - [DoneSyncing] : Outcome, and Description when the sender knows it
type ProgressMessage struct {
	Kind        ProgressKind
	Description string
	Entries     int
	NumFiles    int
	TotalSize   int64
	Size        int64
	Done        int64
	Outcome     SyncOutcome
}

func TodoMsg(entries, numFiles int, totalSize int64) ProgressMessage {
	return ProgressMessage{Kind: Todo, Entries: entries, NumFiles: numFiles, TotalSize: totalSize}
}

func StartSyncMsg(description string) ProgressMessage {
	return ProgressMessage{Kind: StartSync, Description: description}
}

func SyncingMsg(description string, size, done int64) ProgressMessage {
	return ProgressMessage{Kind: Syncing, Description: description, Size: size, Done: done}
}

func DoneSyncingMsg(outcome SyncOutcome) ProgressMessage {
	return ProgressMessage{Kind: DoneSyncing, Outcome: outcome}
}

func (m ProgressMessage) String() string {
	switch m.Kind {
	case Todo:
		return fmt.Sprintf("todo: %d files, %d bytes", m.NumFiles, m.TotalSize)
	case StartSync:
		return fmt.Sprintf("syncing %s", m.Description)
	case Syncing:
		return fmt.Sprintf("%s: %d/%d bytes", m.Description, m.Done, m.Size)
	case DoneSyncing:
		return fmt.Sprintf("done: %s", m.Outcome)
	default:
		return ""
	}
}
