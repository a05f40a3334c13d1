package usn

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/log"
	"github.com/ram-shortage/brindex/pkg/types"
)

// Monitor polls one NTFS volume's USN Change Journal at an adaptive
// interval, deduplicates the resulting batch, and applies it to the
// catalog. One Monitor per volume; the Service Shell starts one for each
// enabled NTFS volume at startup and stops them all at shutdown.
type Monitor struct {
	driveLetter string
	volumeID    int64
	store       catalog.Store
	source      journalSource
	throttle    *AdaptiveThrottle
	logger      zerolog.Logger

	journalID uint64
	cursor    int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// New opens driveLetter's journal and begins tracking from whatever
// position it currently reports; there is no prior cursor to validate.
func New(driveLetter string, volumeID int64, store catalog.Store, normalInterval time.Duration) (*Monitor, error) {
	source, err := openJournalSource(driveLetter)
	if err != nil {
		return nil, err
	}
	meta, err := source.queryJournal()
	if err != nil {
		source.close()
		return nil, err
	}
	return newMonitor(driveLetter, volumeID, store, source, normalInterval, meta.journalID, meta.nextUsn), nil
}

// Resume opens driveLetter's journal and validates a previously persisted
// cursor against it before adopting it: a journal id mismatch means the
// journal was deleted and recreated, and a cursor below the lowest valid
// USN means the kernel has already reused that journal space.
func Resume(driveLetter string, volumeID int64, store catalog.Store, savedUsn int64, savedJournalID uint64, normalInterval time.Duration) (*Monitor, error) {
	source, err := openJournalSource(driveLetter)
	if err != nil {
		return nil, err
	}
	meta, err := source.queryJournal()
	if err != nil {
		source.close()
		return nil, err
	}
	if meta.journalID != savedJournalID {
		source.close()
		return nil, &JournalRecreatedError{OldID: savedJournalID, NewID: meta.journalID}
	}
	if savedUsn < meta.lowestValid {
		source.close()
		return nil, &JournalWrappedError{LastProcessed: savedUsn, LowestValid: meta.lowestValid}
	}
	return newMonitor(driveLetter, volumeID, store, source, normalInterval, meta.journalID, savedUsn), nil
}

func newMonitor(driveLetter string, volumeID int64, store catalog.Store, source journalSource, normalInterval time.Duration, journalID uint64, cursor int64) *Monitor {
	return &Monitor{
		driveLetter: driveLetter,
		volumeID:    volumeID,
		store:       store,
		source:      source,
		throttle:    NewAdaptiveThrottle(normalInterval),
		logger:      log.WithVolume(driveLetter),
		journalID:   journalID,
		cursor:      cursor,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// PollChanges re-validates the journal against wrap and recreation,
// reads every record past the cursor, classifies and deduplicates them,
// and advances the cursor. It does not touch the catalog; the caller
// decides what to do with the result.
func (m *Monitor) PollChanges() ([]types.UsnChange, error) {
	meta, err := m.source.queryJournal()
	if err != nil {
		return nil, err
	}
	if meta.journalID != m.journalID {
		return nil, &JournalRecreatedError{OldID: m.journalID, NewID: meta.journalID}
	}
	if m.cursor < meta.lowestValid {
		return nil, &JournalWrappedError{LastProcessed: m.cursor, LowestValid: meta.lowestValid}
	}

	var changes []types.UsnChange
	cursor := m.cursor
	for cursor < meta.nextUsn {
		raw, nextUsn, err := m.source.readJournal(cursor, m.journalID)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 || nextUsn <= cursor {
			break
		}
		for _, r := range raw {
			if change, ok := r.toUsnChange(); ok {
				changes = append(changes, change)
			}
		}
		cursor = nextUsn
	}
	m.cursor = cursor
	return Deduplicate(changes), nil
}

// Start begins the poll/apply loop in a background goroutine.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Stop requests the loop exit and blocks until it has.
func (m *Monitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

// run polls on an adaptive timer until stopped or a poll fails (journal
// wrap, recreation, or any other read error), at which point it logs the
// error and returns; it does not start a rescan itself.
func (m *Monitor) run(ctx context.Context) {
	defer close(m.doneCh)
	defer m.source.close()

	m.logger.Info().Msg("USN monitor started")
	var lastCycleElapsed time.Duration
	for {
		sleep := m.throttle.Interval() - lastCycleElapsed
		if sleep > 0 {
			select {
			case <-m.stopCh:
				m.logger.Info().Msg("USN monitor stopped")
				return
			case <-ctx.Done():
				m.logger.Info().Msg("USN monitor stopped")
				return
			case <-time.After(sleep):
			}
		} else {
			select {
			case <-m.stopCh:
				m.logger.Info().Msg("USN monitor stopped")
				return
			case <-ctx.Done():
				m.logger.Info().Msg("USN monitor stopped")
				return
			default:
			}
		}
		cycleStart := time.Now()

		changes, err := m.PollChanges()
		if err != nil {
			m.logger.Warn().Err(err).Msg("USN monitor poll failed, stopping pending rescan")
			return
		}
		if len(changes) > 0 {
			if _, err := m.store.ApplyChangesBatch(ctx, m.volumeID, changes); err != nil {
				m.logger.Error().Err(err).Msg("failed to apply USN changes")
			} else if err := m.store.UpdateVolumeUSN(ctx, m.volumeID, m.cursor, m.journalID); err != nil {
				m.logger.Error().Err(err).Msg("failed to persist USN cursor")
			}
		}
		lastCycleElapsed = time.Since(cycleStart)
	}
}
