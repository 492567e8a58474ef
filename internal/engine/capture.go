package engine

// InputCapturer is implemented by the renderer host. Capture installs
// window-level pointer-move and pointer-up listeners so a drag keeps
// tracking outside the canvas; Release removes them.
type InputCapturer interface {
	Capture()
	Release()
}

type nopCapturer struct{}

func (nopCapturer) Capture() {}
func (nopCapturer) Release() {}

// CaptureManager hands out at most one pointer capture at a time.
type CaptureManager struct {
	sink   InputCapturer
	active *Capture
}

// NewCaptureManager wraps sink. A nil sink is allowed.
func NewCaptureManager(sink InputCapturer) *CaptureManager {
	if sink == nil {
		sink = nopCapturer{}
	}
	return &CaptureManager{sink: sink}
}

// Capture is a held pointer capture. Release is idempotent.
type Capture struct {
	mgr      *CaptureManager
	released bool
}

// Acquire takes the capture. It returns false, without side effects, when
// another capture is still held.
func (cm *CaptureManager) Acquire() (*Capture, bool) {
	if cm.active != nil {
		return nil, false
	}
	c := &Capture{mgr: cm}
	cm.active = c
	cm.sink.Capture()
	return c, true
}

// Pending reports whether a capture is held.
func (cm *CaptureManager) Pending() bool {
	return cm.active != nil
}

// ReleaseAll drops any held capture. Used on teardown.
func (cm *CaptureManager) ReleaseAll() {
	if cm.active != nil {
		cm.active.Release()
	}
}

func (c *Capture) Release() {
	if c == nil || c.released {
		return
	}
	c.released = true
	if c.mgr.active == c {
		c.mgr.active = nil
		c.mgr.sink.Release()
	}
}
