package downloader

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a download item. Transitions only move
// forward: Queued -> Downloading -> Completed/Failed/Cancelled.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Item is one queued archive download. The manager owns all mutation;
// callers only see value snapshots.
type Item struct {
	ID              string
	AppID           string
	DisplayName     string
	SourceURL       string
	DestPath        string
	TotalBytes      int64
	DownloadedBytes int64
	Progress        float64 // percent, 0-100
	Status          Status
	StatusMessage   string
	StartTime       time.Time
	EndTime         time.Time
}

// NewItem builds a queued item with a fresh id.
func NewItem(appID, displayName, sourceURL, destPath string) *Item {
	return &Item{
		ID:          uuid.NewString(),
		AppID:       appID,
		DisplayName: displayName,
		SourceURL:   sourceURL,
		DestPath:    destPath,
		Status:      StatusQueued,
	}
}
