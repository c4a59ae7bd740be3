package models

// Entry is a named reference to one filesystem path. It is immutable once created.
type Entry struct {
	description string
	path        string
}

// NewEntry creates an [Entry] for path, labelled with description.
func NewEntry(description, path string) Entry {
	return Entry{description: description, path: path}
}

func (e Entry) Description() string { return e.description }
func (e Entry) Path() string        { return e.path }
func (e Entry) String() string      { return e.description }
