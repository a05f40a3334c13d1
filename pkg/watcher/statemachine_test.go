package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ram-shortage/brindex/pkg/types"
)

func TestTransitionTable(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		current types.VolumeState
		event   Event
		want    types.VolumeStateKind
		wantErr bool
	}{
		{"online unmounts", types.Online(), EventUnmount, types.VolumeOffline, false},
		{"offline mounts same serial", types.Offline(now.Add(-time.Hour)), EventMountSameSerial, types.VolumeOnline, false},
		{"offline mount new serial retires record", types.Offline(now.Add(-time.Hour)), EventMountNewSerial, types.VolumeOffline, false},
		{"online mount new serial retires record", types.Online(), EventMountNewSerial, types.VolumeOffline, false},
		{"online scheduled rescan", types.Online(), EventScheduledRescan, types.VolumeRescanning, false},
		{"online journal wrap", types.Online(), EventJournalWrap, types.VolumeRescanning, false},
		{"rescanning completes", types.Rescanning(), EventRescanOK, types.VolumeOnline, false},
		{"indexing completes", types.Indexing(), EventIndexingOK, types.VolumeOnline, false},
		{"any state disabled", types.Online(), EventDisabled, types.VolumeDisabled, false},
		{"offline state disabled", types.Offline(now), EventDisabled, types.VolumeDisabled, false},
		{"rescan from offline is illegal", types.Offline(now), EventScheduledRescan, types.VolumeOffline, true},
		{"rescan ok from online is illegal", types.Online(), EventRescanOK, types.VolumeOnline, true},
		{"indexing ok from online is illegal", types.Online(), EventIndexingOK, types.VolumeOnline, true},
		{"mount same serial while online is idempotent", types.Online(), EventMountSameSerial, types.VolumeOnline, false},
		{"disabled volume ignores unmount", types.Disabled(), EventUnmount, types.VolumeDisabled, false},
		{"disabled volume ignores mount", types.Disabled(), EventMountSameSerial, types.VolumeDisabled, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transition(tc.current, tc.event, now)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrIllegalTransition)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, got.Kind)
		})
	}
}

func TestTransitionUnmountStampsOfflineSince(t *testing.T) {
	now := time.Now()
	got, err := Transition(types.Online(), EventUnmount, now)
	assert.NoError(t, err)
	assert.WithinDuration(t, now, got.Since, time.Millisecond)
}
