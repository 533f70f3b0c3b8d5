// Package store holds the daemon's process-wide state: the last launched
// app, the interpreter path and the latest scan.
package store

import (
	"time"

	"github.com/grovetools/dock/pkg/apps"
)

// NoLaunch is reported by LastLaunched before any launch has succeeded.
const NoLaunch = "None"

// State is a snapshot of everything the store tracks.
type State struct {
	LastLaunched string             `json:"last_launched"`
	Interpreter  string             `json:"interpreter"`
	ScanRoot     string             `json:"scan_root,omitempty"`
	Apps         apps.CategoryIndex `json:"apps,omitempty"`
	ScannedAt    time.Time          `json:"scanned_at,omitempty"`
}

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	UpdateScan         UpdateType = "scan"
	UpdateLaunch       UpdateType = "launch"
	UpdateInterpreter  UpdateType = "interpreter"
	UpdateConfigReload UpdateType = "config_reload"
)

// Update is broadcast to subscribers after every change.
type Update struct {
	Type    UpdateType  `json:"type"`
	Source  string      `json:"source,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}
