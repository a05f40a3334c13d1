package watcher

import (
	"errors"
	"time"

	"github.com/ram-shortage/brindex/pkg/types"
)

// Event is one input to the Volume State Machine.
type Event int

const (
	// EventMountSameSerial fires when a drive letter that was Offline
	// reappears reporting the same volume serial.
	EventMountSameSerial Event = iota
	// EventMountNewSerial fires when a drive letter reappears with a
	// different serial than the record on file; the caller is
	// responsible for creating the replacement record (the Router does
	// it directly), Transition only retires this one.
	EventMountNewSerial
	// EventUnmount fires when a mounted drive letter disappears.
	EventUnmount
	// EventScheduledRescan and EventJournalWrap both start a full
	// rescan of an Online volume.
	EventScheduledRescan
	EventJournalWrap
	// EventRescanOK and EventIndexingOK report a rescan or initial
	// index completing successfully.
	EventRescanOK
	EventIndexingOK
	// EventDisabled fires when configuration removes or disables a
	// drive letter, regardless of its current state.
	EventDisabled
)

// ErrIllegalTransition is returned when event doesn't apply to current.
var ErrIllegalTransition = errors.New("watcher: illegal state transition")

// Transition applies event to current and returns the resulting state.
// now stamps VolumeState.Offline.Since; passing it in keeps the
// function pure and its tests deterministic.
func Transition(current types.VolumeState, event Event, now time.Time) (types.VolumeState, error) {
	if current.Kind == types.VolumeDisabled && event != EventDisabled {
		return current, nil
	}

	switch event {
	case EventDisabled:
		return types.Disabled(), nil

	case EventUnmount, EventMountNewSerial:
		return types.Offline(now), nil

	case EventMountSameSerial:
		if current.Kind == types.VolumeOffline {
			return types.Online(), nil
		}
		return current, nil

	case EventScheduledRescan, EventJournalWrap:
		if current.Kind != types.VolumeOnline {
			return current, ErrIllegalTransition
		}
		return types.Rescanning(), nil

	case EventRescanOK:
		if current.Kind != types.VolumeRescanning {
			return current, ErrIllegalTransition
		}
		return types.Online(), nil

	case EventIndexingOK:
		if current.Kind != types.VolumeIndexing {
			return current, ErrIllegalTransition
		}
		return types.Online(), nil

	default:
		return current, ErrIllegalTransition
	}
}
