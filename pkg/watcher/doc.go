/*
Package watcher drives the Volume State Machine from OS volume
lifecycle notifications. statemachine.go is a pure Transition function
exercised directly by its tests; watcher_windows.go creates a hidden
window to receive WM_DEVICECHANGE and turns its drive-letter bitmask
into Mounted/Unmounted events, debouncing mounts 100ms to absorb
boot-time floods and handling unmounts immediately. The Event Router
(router.go) applies each event to the Catalog Store via Transition.
*/
package watcher
