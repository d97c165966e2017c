package cartquery

import "github.com/dujiao-next/storefront/internal/clock"

// DrawerState 购物车抽屉状态
type DrawerState string

const (
	DrawerClosed        DrawerState = "closed"
	DrawerOpen          DrawerState = "open"
	DrawerOpenAutoClose DrawerState = "open_autoclose"
)

// Drawer 当前抽屉状态
func (f *Facade) Drawer() DrawerState {
	f.drawerMu.Lock()
	defer f.drawerMu.Unlock()
	return f.drawerStateLocked()
}

// OpenDrawer 手动打开，取消待触发的自动关闭
func (f *Facade) OpenDrawer() DrawerState {
	f.drawerMu.Lock()
	defer f.drawerMu.Unlock()
	f.cancelAutoCloseLocked()
	f.setOpenLocked(true)
	return f.drawerStateLocked()
}

// CloseDrawer 手动关闭，取消待触发的自动关闭
func (f *Facade) CloseDrawer() DrawerState {
	f.drawerMu.Lock()
	defer f.drawerMu.Unlock()
	f.cancelAutoCloseLocked()
	f.setOpenLocked(false)
	return f.drawerStateLocked()
}

// ToggleDrawer 打开时关闭，关闭时打开（不带自动关闭）
func (f *Facade) ToggleDrawer() DrawerState {
	f.drawerMu.Lock()
	defer f.drawerMu.Unlock()
	open := f.drawerOpen
	f.cancelAutoCloseLocked()
	f.setOpenLocked(!open)
	return f.drawerStateLocked()
}

// openWithAutoClose 加购成功后打开抽屉并重新计时
func (f *Facade) openWithAutoClose() {
	f.drawerMu.Lock()
	defer f.drawerMu.Unlock()
	f.cancelAutoCloseLocked()
	if f.unmounted {
		f.setOpenLocked(true)
		return
	}

	f.timerSeq++
	seq := f.timerSeq
	var timer clock.Timer
	timer = f.clock.AfterFunc(f.autoCloseDelay, func() {
		f.drawerMu.Lock()
		defer f.drawerMu.Unlock()
		if f.timerSeq != seq || f.autoClose != timer {
			return
		}
		f.autoClose = nil
		f.setOpenLocked(false)
	})
	f.autoClose = timer
	f.setOpenLocked(true)
}

func (f *Facade) cancelAutoCloseLocked() {
	if f.autoClose == nil {
		return
	}
	f.autoClose.Stop()
	f.autoClose = nil
	f.timerSeq++
}

func (f *Facade) setOpenLocked(open bool) {
	if f.drawerOpen == open {
		return
	}
	f.drawerOpen = open
	if f.onDrawerChange != nil {
		f.onDrawerChange(f.drawerStateLocked())
	}
}

func (f *Facade) drawerStateLocked() DrawerState {
	switch {
	case !f.drawerOpen:
		return DrawerClosed
	case f.autoClose != nil:
		return DrawerOpenAutoClose
	default:
		return DrawerOpen
	}
}
