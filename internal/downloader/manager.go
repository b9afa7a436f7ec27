// Package downloader runs the bounded-concurrency archive download queue.
// Items move Queued -> Downloading -> Completed/Failed/Cancelled; one item's
// failure never stalls the rest of the queue.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vfaronov/httpheader"
	"go.uber.org/zap"

	"github.com/depotctl/depotctl/internal/manifestapi"
)

// StatusPoller answers whether an app's archive is still being regenerated
// server-side. *manifestapi.Client implements it.
type StatusPoller interface {
	GetGameStatus(ctx context.Context, appID string) *manifestapi.GameStatus
}

// Config tunes the queue. Zero fields fall back to defaults.
type Config struct {
	MaxConcurrent   int           // simultaneous downloads, default 3
	PollInterval    time.Duration // readiness re-poll delay, default 5s
	MaxPollAttempts int           // readiness poll bound, default 60 (~5 min)
	ChunkSize       int           // copy buffer, default 32 KiB
	DownloadDir     string        // destination when an item has no DestPath
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = 60
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 32 * 1024
	}
	return c
}

type activeDownload struct {
	item   *Item
	cancel context.CancelFunc
}

// Manager owns the queued/active/completed/failed collections. Every item
// lives in exactly one of them at any time; the promotion step is guarded by
// mu so the concurrency ceiling is never exceeded.
type Manager struct {
	cfg    Config
	poller StatusPoller
	client *http.Client
	log    *zap.Logger

	mu        sync.Mutex
	queued    []*Item
	active    map[string]*activeDownload
	completed []*Item
	failed    []*Item

	events chan any
	wg     sync.WaitGroup
}

func NewManager(cfg Config, poller StatusPoller, log *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg.withDefaults(),
		poller: poller,
		client: &http.Client{},
		log:    log,
		active: make(map[string]*activeDownload),
		events: make(chan any, 128),
	}
}

// Events returns the event stream. Events are dropped, not blocked on, when
// no consumer keeps up.
func (m *Manager) Events() <-chan any {
	return m.events
}

func (m *Manager) publish(ev any) {
	select {
	case m.events <- ev:
	default:
	}
}

// Enqueue adds an item and promotes queued items up to the ceiling.
func (m *Manager) Enqueue(item *Item) {
	m.log.Info("queuing download",
		zap.String("name", item.DisplayName), zap.String("app", item.AppID))

	m.mu.Lock()
	item.Status = StatusQueued
	item.StatusMessage = "Queued"
	item.StartTime = time.Now()
	m.queued = append(m.queued, item)
	m.wg.Add(1)
	m.publish(QueuedEvent{Item: *item})
	m.promoteLocked()
	m.mu.Unlock()
}

// promoteLocked moves queued items to active until the ceiling is reached.
// Callers must hold mu.
func (m *Manager) promoteLocked() {
	for len(m.queued) > 0 && len(m.active) < m.cfg.MaxConcurrent {
		item := m.queued[0]
		m.queued = m.queued[1:]

		ctx, cancel := context.WithCancel(context.Background())
		m.active[item.ID] = &activeDownload{item: item, cancel: cancel}
		item.Status = StatusDownloading
		item.StatusMessage = "Starting download..."
		m.publish(StartedEvent{Item: *item})

		go m.run(ctx, item)
	}
}

// Cancel signals cooperative cancellation for an in-flight item. Queued
// items are dropped immediately; terminal items are untouched.
func (m *Manager) Cancel(itemID string) {
	m.mu.Lock()
	if ad, ok := m.active[itemID]; ok {
		m.mu.Unlock()
		ad.cancel()
		return
	}
	for i, it := range m.queued {
		if it.ID == itemID {
			m.queued = append(m.queued[:i], m.queued[i+1:]...)
			it.Status = StatusCancelled
			it.StatusMessage = "Cancelled"
			it.EndTime = time.Now()
			m.publish(CancelledEvent{Item: *it})
			m.wg.Done()
			break
		}
	}
	m.mu.Unlock()
}

// Retry moves a failed item back into the queue.
func (m *Manager) Retry(itemID string) {
	m.mu.Lock()
	var item *Item
	for i, it := range m.failed {
		if it.ID == itemID {
			m.failed = append(m.failed[:i], m.failed[i+1:]...)
			item = it
			break
		}
	}
	m.mu.Unlock()

	if item == nil {
		return
	}
	item.Progress = 0
	item.DownloadedBytes = 0
	item.EndTime = time.Time{}
	m.Enqueue(item)
}

// ClearCompleted drops all completed items.
func (m *Manager) ClearCompleted() {
	m.mu.Lock()
	m.completed = nil
	m.mu.Unlock()
}

// ClearFailed drops all failed items.
func (m *Manager) ClearFailed() {
	m.mu.Lock()
	m.failed = nil
	m.mu.Unlock()
}

// Wait blocks until every enqueued item has reached a terminal state.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func snapshot(items []*Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		out = append(out, *it)
	}
	return out
}

// Queued returns a read-only snapshot of the queued items.
func (m *Manager) Queued() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.queued)
}

// Active returns a read-only snapshot of the in-flight items.
func (m *Manager) Active() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0, len(m.active))
	for _, ad := range m.active {
		out = append(out, *ad.item)
	}
	return out
}

// Completed returns a read-only snapshot of the completed items.
func (m *Manager) Completed() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.completed)
}

// Failed returns a read-only snapshot of the failed items.
func (m *Manager) Failed() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.failed)
}

// run executes one item end to end. All errors are absorbed here and
// recorded on the item; nothing propagates to the queue driver.
func (m *Manager) run(ctx context.Context, item *Item) {
	err := m.download(ctx, item)

	m.mu.Lock()
	if ad, ok := m.active[item.ID]; ok {
		ad.cancel()
		delete(m.active, item.ID)
	}
	item.EndTime = time.Now()

	switch {
	case err == nil:
		item.Status = StatusCompleted
		item.StatusMessage = "Download completed"
		m.completed = append(m.completed, item)
		m.publish(CompletedEvent{Item: *item})
		m.log.Info("download completed", zap.String("name", item.DisplayName))
	case errors.Is(err, context.Canceled):
		item.Status = StatusCancelled
		item.StatusMessage = "Cancelled"
		m.failed = append(m.failed, item)
		m.publish(CancelledEvent{Item: *item})
		m.log.Info("download cancelled", zap.String("name", item.DisplayName))
	default:
		item.Status = StatusFailed
		item.StatusMessage = fmt.Sprintf("Failed: %v", err)
		m.failed = append(m.failed, item)
		m.publish(FailedEvent{Item: *item, Err: err})
		m.log.Error("download failed",
			zap.String("name", item.DisplayName), zap.Error(err))
	}

	m.promoteLocked()
	m.mu.Unlock()
	m.wg.Done()
}

func (m *Manager) download(ctx context.Context, item *Item) error {
	if err := m.waitForServerReady(ctx, item); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.SourceURL, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	destPath := item.DestPath
	if destPath == "" {
		destPath = filepath.Join(m.cfg.DownloadDir, m.archiveFilename(resp, item))
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}

	m.mu.Lock()
	item.DestPath = destPath
	item.TotalBytes = resp.ContentLength
	if item.TotalBytes < 0 {
		item.TotalBytes = 0
	}
	m.mu.Unlock()

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".part.*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	buf := make([]byte, m.cfg.ChunkSize)
	var written int64
	for {
		if cerr := ctx.Err(); cerr != nil {
			err = cerr
			return err
		}
		nr, rerr := resp.Body.Read(buf)
		if nr > 0 {
			nw, werr := tmpFile.Write(buf[:nr])
			if werr != nil {
				err = werr
				return err
			}
			if nw != nr {
				err = io.ErrShortWrite
				return err
			}
			written += int64(nw)
			m.recordProgress(item, written)
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			err = rerr
			return err
		}
	}

	if err = tmpFile.Sync(); err != nil {
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, destPath); err != nil {
		return err
	}
	return nil
}

func (m *Manager) recordProgress(item *Item, written int64) {
	m.mu.Lock()
	item.DownloadedBytes = written
	if item.TotalBytes > 0 {
		item.Progress = float64(written) / float64(item.TotalBytes) * 100
	}
	item.StatusMessage = fmt.Sprintf("Downloading... %.1f%%", item.Progress)
	ev := ProgressEvent{
		ItemID:     item.ID,
		Downloaded: item.DownloadedBytes,
		Total:      item.TotalBytes,
		Progress:   item.Progress,
	}
	m.mu.Unlock()
	m.publish(ev)
}

// archiveFilename derives a destination name from Content-Disposition,
// falling back to <appid>.zip.
func (m *Manager) archiveFilename(resp *http.Response, item *Item) string {
	_, filename, _ := httpheader.ContentDisposition(resp.Header)
	if filename != "" {
		return filepath.Base(filename)
	}
	if item.AppID != "" {
		return item.AppID + ".zip"
	}
	return item.ID + ".zip"
}

// waitForServerReady polls the status endpoint until the archive is no
// longer being regenerated. Exceeding the attempt bound is a hard failure.
func (m *Manager) waitForServerReady(ctx context.Context, item *Item) error {
	if m.poller == nil {
		return nil
	}

	for attempt := 0; attempt < m.cfg.MaxPollAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.mu.Lock()
		item.StatusMessage = "Checking server status..."
		m.mu.Unlock()

		status := m.poller.GetGameStatus(ctx, item.AppID)
		if status == nil || !status.UpdateInProgress {
			return nil
		}

		m.mu.Lock()
		item.StatusMessage = "Server updating manifest, waiting..."
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.PollInterval):
		}
	}

	return fmt.Errorf("server status check timed out after %d attempts", m.cfg.MaxPollAttempts)
}
