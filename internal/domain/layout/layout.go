package layout

// Fixed chrome reserved by the host UI around the content panel.
const (
	SidebarWidth = 232
	NavHeight    = 116
)

// Size is the content area of the host window
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect is the region a content surface occupies inside the host window
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ComputeBounds maps the window content bounds to the rectangle of the
// foreground tab's surface. The panel takes the right half of the space left
// of the sidebar, below the navigation bar.
func ComputeBounds(window Size) Rect {
	available := window.Width - SidebarWidth
	panelWidth := floorDiv(available, 2)
	panelX := window.Width - panelWidth

	height := window.Height - NavHeight
	if height < 0 {
		height = 0
	}
	if panelWidth < 0 {
		panelWidth = 0
		panelX = window.Width
	}

	return Rect{
		X:      panelX,
		Y:      NavHeight,
		Width:  panelWidth,
		Height: height,
	}
}

// floorDiv rounds toward negative infinity, unlike Go's truncating division
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
