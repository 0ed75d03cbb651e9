package viewport

import "sync"

// Phase is the lifecycle stage of a viewport.
type Phase string

const (
	PhaseUnloaded Phase = "unloaded"
	PhaseCentered Phase = "centered"
	PhaseDragging Phase = "dragging"
)

// State is an immutable snapshot of the viewport. Transitions return a new
// value instead of mutating the receiver.
type State struct {
	ImageSize       Vec   `json:"image_size"`
	Center          Vec   `json:"center"`
	Offset          Vec   `json:"offset"`
	LastSampleDelta Vec   `json:"last_sample_delta"`
	Phase           Phase `json:"phase"`
}

// NewState returns the unloaded state.
func NewState() State {
	return State{Phase: PhaseUnloaded}
}

// CenterFor returns the offset that centers an image of the given natural
// size inside a container.
func CenterFor(natural, container Vec) Vec {
	return container.Sub(natural).Scale(0.5)
}

// Load returns the state after the image finished loading. Offset is reset
// to the center and the sample baseline to zero.
func (s State) Load(natural, container Vec) State {
	center := CenterFor(natural, container)
	return State{
		ImageSize: natural,
		Center:    center,
		Offset:    center,
		Phase:     PhaseCentered,
	}
}

// Drag returns the state after a cumulative drag sample together with the
// incremental delta since the previous sample.
//
// The delta is the difference of two absolute displacements, so the deltas
// of any sample sequence sum exactly to the last absolute displacement.
func (s State) Drag(cumulative Vec, sensitivity float64) (State, Vec) {
	abs := cumulative.Scale(sensitivity)
	delta := abs.Sub(s.LastSampleDelta)

	next := s
	next.Offset = s.Center.Add(abs)
	next.LastSampleDelta = abs
	next.Phase = PhaseDragging
	return next, delta
}

// Controller owns the viewport state of one viewer.
type Controller struct {
	mu    sync.Mutex
	state State
}

// NewController returns a controller in the unloaded state.
func NewController() *Controller {
	return &Controller{state: NewState()}
}

// OnImageLoad recomputes the center for the image and container sizes and
// resets the offset to it.
func (c *Controller) OnImageLoad(natural, container Vec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.Load(natural, container)
}

// OnDragSample applies a cumulative drag offset and returns the delta every
// marker must be moved by.
func (c *Controller) OnDragSample(cumulative Vec, sensitivity float64) Vec {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, delta := c.state.Drag(cumulative, sensitivity)
	c.state = next
	return delta
}

// CurrentOffset returns the offset the image should be rendered at.
func (c *Controller) CurrentOffset() Vec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Offset
}

// State returns the current state value.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
