//go:build !windows

package watcher

import "context"

// Start is a no-op off Windows: WM_DEVICECHANGE has no equivalent here.
// doneCh is closed immediately so Stop never blocks.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Warn().Msg("volume watcher not available on this platform, mount/unmount events will not be detected")
	close(w.doneCh)
	return nil
}
