package downloader

// Event values are published on the manager's event channel so observers can
// track the queue without touching its collections. Progress for one item is
// monotonically non-decreasing in Downloaded.

type QueuedEvent struct {
	Item Item
}

type StartedEvent struct {
	Item Item
}

type ProgressEvent struct {
	ItemID     string
	Downloaded int64
	Total      int64
	Progress   float64
}

type CompletedEvent struct {
	Item Item
}

type FailedEvent struct {
	Item Item
	Err  error
}

type CancelledEvent struct {
	Item Item
}
