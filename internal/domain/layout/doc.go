// Package layout computes where the foreground tab's content surface sits
// inside the host window.
//
// The host UI reserves a fixed sidebar on the left and a navigation bar on top.
// The content panel takes the right half of the remaining width:
//
//	available = width - SidebarWidth
//	panel     = floor(available / 2)
//	x         = width - panel
//	rect      = {x, NavHeight, panel, height - NavHeight}
//
// ComputeBounds is pure. It is called on every attach and every resize and
// never depends on a previous call.
package layout
