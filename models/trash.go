package models

import (
	"time"
)

// BinItem is a trashed file as shown in the recycle bin. AutoPurgeAt is set only
// when a retention period is configured for the sweep.
type BinItem struct {
	File
	AutoPurgeAt *time.Time `json:"auto_purge_at,omitempty"`
}

func NewBinItem(f File, retention time.Duration) BinItem {
	item := BinItem{File: f}
	if retention > 0 && f.DeletedAt != nil {
		at := f.DeletedAt.Add(retention)
		item.AutoPurgeAt = &at
	}
	return item
}

// EmptyBinResult reports the outcome of purging a user's whole bin.
type EmptyBinResult struct {
	Purged int          `json:"purged"`
	Failed []PurgeError `json:"failed,omitempty"`
}

type PurgeError struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}
