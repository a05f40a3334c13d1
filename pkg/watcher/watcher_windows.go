//go:build windows

package watcher

import (
	"context"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	dbtDeviceArrival        = 0x8000
	dbtDeviceRemoveComplete = 0x8004
	dbtDevTypVolume         = 0x00000002

	wmDeviceChange = 0x0219

	pmNoRemove = 0x0000

	csHRedraw = 0x0002
	csVRedraw = 0x0001

	wsOverlapped = 0x00000000
)

// devBroadcastVolume mirrors the Win32 DEV_BROADCAST_VOLUME struct
// delivered as the lParam of a WM_DEVICECHANGE message whose wParam is
// DBT_DEVICEARRIVAL or DBT_DEVICEREMOVECOMPLETE.
type devBroadcastVolume struct {
	Size       uint32
	DeviceType uint32
	Reserved   uint32
	UnitMask   uint32
	Flags      uint16
}

type wndClassW struct {
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   uintptr
	Icon       uintptr
	Cursor     uintptr
	Background uintptr
	MenuName   *uint16
	ClassName  *uint16
}

type msgT struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	PtX     int32
	PtY     int32
}

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procRegisterClassW   = user32.NewProc("RegisterClassW")
	procCreateWindowExW  = user32.NewProc("CreateWindowExW")
	procDefWindowProcW   = user32.NewProc("DefWindowProcW")
	procPeekMessageW     = user32.NewProc("PeekMessageW")
	procGetMessageW      = user32.NewProc("GetMessageW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
	procDispatchMessageW = user32.NewProc("DispatchMessageW")
	procGetModuleHandleW = kernel32.NewProc("GetModuleHandleW")
)

// Start registers a hidden window and runs its WM_DEVICECHANGE message
// pump on a dedicated, OS-thread-locked goroutine until Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	className, err := syscall.UTF16PtrFromString("BRindeXVolumeWatcher")
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to encode window class name")
		return
	}
	windowName, err := syscall.UTF16PtrFromString("BRindeX Volume Watcher")
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to encode window name")
		return
	}

	instance, _, _ := procGetModuleHandleW.Call(0)

	wndProc := syscall.NewCallback(func(hwnd uintptr, message uint32, wParam, lParam uintptr) uintptr {
		if message == wmDeviceChange {
			w.handleDeviceChange(ctx, wParam, lParam)
			return 1
		}
		ret, _, _ := procDefWindowProcW.Call(hwnd, uintptr(message), wParam, lParam)
		return ret
	})

	wc := wndClassW{
		Style:     csHRedraw | csVRedraw,
		WndProc:   wndProc,
		Instance:  instance,
		ClassName: className,
	}

	atom, _, _ := procRegisterClassW.Call(uintptr(unsafe.Pointer(&wc)))
	if atom == 0 {
		w.logger.Error().Msg("failed to register volume watcher window class")
		return
	}

	hwnd, _, _ := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(windowName)),
		wsOverlapped,
		0, 0, 0, 0,
		0, 0, instance, 0,
	)
	if hwnd == 0 {
		w.logger.Error().Msg("failed to create volume watcher window")
		return
	}

	w.logger.Info().Msg("volume watcher message loop starting")

	var m msgT
	for {
		select {
		case <-w.stopCh:
			w.logger.Info().Msg("volume watcher received shutdown signal")
			return
		default:
		}

		hasMessage, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmNoRemove)
		if hasMessage != 0 {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(ret) <= 0 {
				return
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		} else {
			time.Sleep(idlePoll)
		}
	}
}

func (w *Watcher) handleDeviceChange(ctx context.Context, wParam, lParam uintptr) {
	if lParam == 0 {
		return
	}
	mounted := wParam == dbtDeviceArrival
	unmounted := wParam == dbtDeviceRemoveComplete
	if !mounted && !unmounted {
		return
	}

	header := (*devBroadcastVolume)(unsafe.Pointer(lParam))
	if header.DeviceType != dbtDevTypVolume {
		return
	}

	for _, letter := range driveLettersFromMask(header.UnitMask) {
		if mounted {
			w.dispatchMountDebounced(ctx, letter)
		} else {
			w.dispatchUnmount(ctx, letter)
		}
	}
}
