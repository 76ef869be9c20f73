package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/vision"
)

// ErrAnalysisInProgress rejects photos that arrive while the buffer is
// being analyzed. The sender should wait for the outcome, not lose photos
// silently.
var ErrAnalysisInProgress = errors.New("analysis in progress")

// ErrNotCollecting rejects operations on a user who has not entered intake
// mode.
var ErrNotCollecting = errors.New("intake mode is not active")

// ItemCreator persists an analyzed item with its photos and removes it
// again on undo.
type ItemCreator interface {
	CreateItem(ctx context.Context, listing *model.Listing, photos []model.PendingPhoto) (*model.Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

// Notifier delivers user-facing acknowledgments to the chat collaborator.
type Notifier interface {
	Notify(userID, message string)
}

// Manager owns all live intake sessions, one per user identity, with
// get-or-create semantics behind a single mutex.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	analyzer vision.Analyzer
	items    ItemCreator
	notifier Notifier
}

// NewManager creates a session manager.
func NewManager(analyzer vision.Analyzer, items ItemCreator, notifier Notifier) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		analyzer: analyzer,
		items:    items,
		notifier: notifier,
	}
}

// Enter activates intake mode for the user. Re-entering discards any
// previous session state, cancelling an analysis it may still have in
// flight, and starts fresh.
func (m *Manager) Enter(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.sessions[userID]; ok {
		old.mu.Lock()
		if old.cancel != nil {
			old.cancel()
		}
		old.mu.Unlock()
	}
	m.sessions[userID] = &Session{
		userID:    userID,
		intakeID:  uuid.New().String(),
		state:     StateCollecting,
		startedAt: time.Now().UTC(),
	}
}

func (m *Manager) get(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNotCollecting
	}
	return sess, nil
}

// AddPhoto buffers a photo for the user's session and returns the buffered
// count. The photo that fills the buffer flips the session to Analyzing
// under the lock and spawns exactly one analysis run; photos arriving while
// an analysis is in flight are rejected with ErrAnalysisInProgress.
func (m *Manager) AddPhoto(userID string, photo model.PendingPhoto) (int, bool, error) {
	sess, err := m.get(userID)
	if err != nil {
		return 0, false, err
	}

	sess.mu.Lock()
	switch sess.state {
	case StateCollecting:
	case StateAnalyzing:
		sess.mu.Unlock()
		return PhotosPerItem, false, ErrAnalysisInProgress
	default:
		sess.mu.Unlock()
		return 0, false, ErrNotCollecting
	}

	sess.photos = append(sess.photos, photo)
	count := len(sess.photos)
	if count < PhotosPerItem {
		sess.mu.Unlock()
		m.notifier.Notify(userID, fmt.Sprintf("Photo %d of %d received.", count, PhotosPerItem))
		return count, false, nil
	}

	// Third photo: claim the buffer and trigger exactly one analysis.
	sess.state = StateAnalyzing
	batch := make([]model.PendingPhoto, len(sess.photos))
	copy(batch, sess.photos)
	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	sess.wg.Add(1)
	sess.mu.Unlock()

	m.notifier.Notify(userID, fmt.Sprintf("Photo %d of %d received, analyzing...", count, PhotosPerItem))
	go func() {
		defer sess.wg.Done()
		defer cancel()
		m.runAnalysis(ctx, sess, batch)
	}()
	return count, true, nil
}

// runAnalysis performs the long-latency vision call off the session lock,
// then applies the outcome and resets the buffer.
func (m *Manager) runAnalysis(ctx context.Context, sess *Session, photos []model.PendingPhoto) {
	paths := make([]string, len(photos))
	for i, p := range photos {
		paths[i] = p.LocalPath
	}

	listing, err := m.analyzer.AnalyzeItem(ctx, paths)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.photos = sess.photos[:0]
	sess.state = StateCollecting
	sess.cancel = nil

	if err != nil {
		// Transport or timeout failure: the photo files stay on disk
		// for manual recovery, nothing is re-queued automatically.
		sess.lastOutcome = OutcomeFailed
		slog.Error("analysis failed", "user", sess.userID, "intake", sess.intakeID, "error", err)
		if errors.Is(err, model.ErrTimeout) {
			m.notifier.Notify(sess.userID, "The analysis timed out, please try again.")
		} else {
			m.notifier.Notify(sess.userID, "Something went wrong while analyzing, please try again.")
		}
		return
	}

	if listing.ParseError {
		// Degraded result: no item is created and the buffered photos
		// are discarded.
		sess.lastOutcome = OutcomeDegraded
		discardPhotos(photos)
		slog.Warn("analysis output unparseable", "user", sess.userID, "intake", sess.intakeID)
		m.notifier.Notify(sess.userID, "Couldn't read the item details, try clearer photos.")
		return
	}

	item, err := m.items.CreateItem(ctx, listing, photos)
	if err != nil {
		sess.lastOutcome = OutcomeFailed
		slog.Error("item creation failed", "user", sess.userID, "intake", sess.intakeID, "error", err)
		m.notifier.Notify(sess.userID, "Saving the item failed, please try again.")
		return
	}

	sess.lastOutcome = OutcomeCompleted
	sess.created = append(sess.created, model.ItemSummary{
		ItemID:         item.ID,
		SKU:            item.SKU,
		Label:          listing.Label(),
		EstimatedPrice: listing.Price(),
	})
	discardPhotos(photos)
	slog.Info("item created", "user", sess.userID, "item_id", item.ID, "sku", item.SKU)
	m.notifier.Notify(sess.userID, fmt.Sprintf("Added %s (%s), estimated $%.2f.", listing.Label(), item.SKU, listing.Price()))
}

// UndoLast removes the most recently created item in this session together
// with its image rows and pops it from the session summary.
func (m *Manager) UndoLast(ctx context.Context, userID string) (*model.ItemSummary, error) {
	sess, err := m.get(userID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.created) == 0 {
		return nil, fmt.Errorf("nothing to undo in this session")
	}

	last := sess.created[len(sess.created)-1]
	if err := m.items.DeleteItem(ctx, last.ItemID); err != nil {
		return nil, fmt.Errorf("undo item %d: %w", last.ItemID, err)
	}
	sess.created = sess.created[:len(sess.created)-1]
	m.notifier.Notify(userID, fmt.Sprintf("Removed %s (%s).", last.Label, last.SKU))
	return &last, nil
}

// Exit leaves intake mode, cancelling any in-flight analysis, and returns
// the end-of-session summary.
func (m *Manager) Exit(userID string) (*Summary, error) {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotCollecting
	}

	sess.mu.Lock()
	if sess.cancel != nil {
		// The outstanding analysis result is ignored; the goroutine
		// observes the cancelled context and gives up.
		sess.cancel()
	}
	sess.state = StateInactive
	summary := sess.summaryLocked()
	sess.mu.Unlock()
	return summary, nil
}

// Status returns a read-only snapshot for the user's session. It stays
// responsive while an analysis is in flight because the vision call runs
// off the session lock.
func (m *Manager) Status(userID string) (*Status, error) {
	sess, err := m.get(userID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.statusLocked(), nil
}

// Summarize returns the running session report without ending the session.
func (m *Manager) Summarize(userID string) (*Summary, error) {
	sess, err := m.get(userID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.summaryLocked(), nil
}

// discardPhotos removes consumed temp files. The bytes already live in the
// asset store (or the attempt was abandoned), so failures only cost disk.
func discardPhotos(photos []model.PendingPhoto) {
	for _, p := range photos {
		if err := os.Remove(p.LocalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("removing temp photo", "path", p.LocalPath, "error", err)
		}
	}
}
