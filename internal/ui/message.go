package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/dsync/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgress MsgKind = iota
	MsgSyncComplete
)

type syncResult struct {
	stats models.Stats
	err   error
}

// progressMsg is the constructor for [MsgProgress]
func progressMsg(msg models.ProgressMessage) Msg {
	return Msg{kind: MsgProgress, data: msg}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(stats models.Stats, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncResult{stats, err}}
}
