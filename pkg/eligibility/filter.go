// Package eligibility decides whether an accessibility element deserves
// magnetism. It turns one element snapshot per tick into either a
// candidate frame or nothing, applying role, area, shape and per-app
// exclusions, plus a short linger window that masks accessibility
// flicker.
package eligibility

import (
	"time"

	"github.com/mvanrijn/driftlock/pkg/geom"
)

// Element is the accessibility snapshot taken at the raw pointer.
type Element struct {
	Frame           geom.Rect
	Role            string
	Actions         []string
	URL             string
	BundleID        string
	FilePickerPanel bool
}

// HasAction reports whether the element advertises the named action.
func (el Element) HasAction(name string) bool {
	for _, a := range el.Actions {
		if a == name {
			return true
		}
	}
	return false
}

// Params hold the filter policy. DefaultParams matches the stock macOS
// accessibility vocabulary.
type Params struct {
	// LingerWindow is how long a vanished candidate is re-emitted while
	// the raw pointer stays on it.
	LingerWindow time.Duration

	// OpenPanelBundleID is the Open/Save panel XPC service; elements it
	// owns never get magnetism.
	OpenPanelBundleID string

	// FileBrowserBundleID gets its list rows and decorations excluded
	// while its buttons keep magnetism.
	FileBrowserBundleID string

	// MailBundleID gets its sidebar rows and small square buttons
	// excluded.
	MailBundleID string

	IgnoredActions []string
	PressActions   []string
	MagneticRoles  []string
	RowLikeRoles   []string

	// MaxAreaByRole caps the candidate area per role; DefaultMaxArea
	// applies to everything else.
	MaxAreaByRole  map[string]float64
	DefaultMaxArea float64
}

var DefaultParams = Params{
	LingerWindow:        60 * time.Millisecond,
	OpenPanelBundleID:   "com.apple.appkit.xpc.openAndSavePanelService",
	FileBrowserBundleID: "com.apple.finder",
	MailBundleID:        "com.apple.mail",
	IgnoredActions:      []string{"AXScrollToVisible"},
	PressActions:        []string{"AXPress", "AXConfirm", "AXPick", "AXShowMenu"},
	MagneticRoles: []string{
		"AXButton", "AXPopUpButton", "AXMenuButton", "AXMenuItem",
		"AXMenuBarItem", "AXCheckBox", "AXRadioButton", "AXLink",
		"AXComboBox", "AXTextField", "AXSegmentedControl", "AXTab",
	},
	RowLikeRoles: []string{"AXRow", "AXOutlineRow", "AXCell", "AXOutline"},
	MaxAreaByRole: map[string]float64{
		"AXLink":       30000,
		"AXTextArea":   12000,
		"AXGroup":      10500,
		"AXStaticText": 13500,
	},
	DefaultMaxArea: 15000,
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Filter evaluates element snapshots. It is stateful only through the
// linger memory and must be driven from the tick thread.
type Filter struct {
	params Params

	lingerFrame geom.Rect
	lingerAt    time.Time
	lingerSet   bool
}

// NewFilter returns a Filter with the given policy.
func NewFilter(params Params) *Filter {
	return &Filter{params: params}
}

// Evaluate turns one element snapshot into a candidate frame. el may be
// nil when the inspector saw nothing; the linger window then bridges
// short gaps. ok is false when there is no candidate this tick.
func (f *Filter) Evaluate(el *Element, raw geom.Vec, now time.Time) (geom.Rect, bool) {
	if el != nil && (el.FilePickerPanel || el.BundleID == f.params.OpenPanelBundleID) {
		f.lingerSet = false
		return geom.Rect{}, false
	}

	if el != nil {
		if frame, ok := f.Qualify(*el, raw); ok {
			f.lingerFrame = frame
			f.lingerAt = now
			f.lingerSet = true
			return frame, true
		}
	}

	// no candidate this tick; bridge a short accessibility stutter while
	// the raw pointer stays on the previous one
	if f.lingerSet &&
		now.Sub(f.lingerAt) < f.params.LingerWindow &&
		f.lingerFrame.Inset(-12, -12).Contains(raw) {
		return f.lingerFrame, true
	}
	f.lingerSet = false
	return geom.Rect{}, false
}

// Qualify applies the stateless eligibility rules without touching the
// linger memory. The high-velocity probe uses it for intermediate
// samples.
func (f *Filter) Qualify(el Element, raw geom.Vec) (geom.Rect, bool) {
	p := f.params
	for _, a := range el.Actions {
		if contains(p.IgnoredActions, a) {
			return geom.Rect{}, false
		}
	}

	frame := el.Frame
	w, h := frame.W, frame.H
	aspect := w / max(h, 1)

	if f.excludedByApp(el, aspect) {
		return geom.Rect{}, false
	}

	hasPress := false
	for _, a := range p.PressActions {
		if el.HasAction(a) {
			hasPress = true
			break
		}
	}
	hasLink := el.URL != ""
	byRole := el.Role != "" && contains(p.MagneticRoles, el.Role)
	// role-less elements go through the implicit path with its tighter
	// area floor
	byActionsOrURL := (hasPress || hasLink) && el.Role != ""

	area := frame.Area()
	maxArea := p.DefaultMaxArea
	if m, ok := p.MaxAreaByRole[el.Role]; ok {
		maxArea = m
	}

	implicit := el.Role == "" && (hasPress || hasLink) && area > 100 && area <= p.DefaultMaxArea

	candidate := ((byRole || byActionsOrURL) && area <= maxArea) || implicit
	if !candidate {
		return geom.Rect{}, false
	}

	// extreme shapes never snap well
	rowLike := contains(p.RowLikeRoles, el.Role)
	sidebarish := el.Role == "AXStaticText" || el.Role == "AXGroup" || el.Role == "AXButton"
	switch {
	case aspect > 8 && h < 25:
		return geom.Rect{}, false
	case rowLike && aspect > 1.5 && w > 120:
		return geom.Rect{}, false
	case sidebarish && aspect > 1.8 && w > 140 && h < 50:
		return geom.Rect{}, false
	case aspect > 2.2 && w > 160 && h < 45 && area < 12000:
		return geom.Rect{}, false
	}

	if !implicit && !f.nearFrame(frame, raw) {
		return geom.Rect{}, false
	}
	return frame, true
}

// excludedByApp applies the per-application role exclusions.
func (f *Filter) excludedByApp(el Element, aspect float64) bool {
	p := f.params
	switch el.BundleID {
	case p.FileBrowserBundleID:
		// rows, images, labels and groups in the file browser are not
		// interactive; its buttons are
		switch el.Role {
		case "AXRow", "AXOutlineRow", "AXOutline", "AXCell",
			"AXImage", "AXStaticText", "AXGroup":
			return true
		}
	case p.MailBundleID:
		if contains(p.RowLikeRoles, el.Role) {
			return true
		}
		if el.Role == "AXButton" &&
			el.Frame.W < 100 && el.Frame.H < 100 &&
			aspect > 0.5 && aspect < 2 {
			return true
		}
	}
	return false
}

// nearFrame is the proximity gate: the raw pointer either sits inside the
// padded frame or within reach of its center.
func (f *Filter) nearFrame(frame geom.Rect, raw geom.Vec) bool {
	insetX := geom.Clamp(frame.W*0.2, 8, 32)
	insetY := geom.Clamp(frame.H*0.6, 8, 36)
	if frame.Inset(-insetX, -insetY).Contains(raw) {
		return true
	}
	reach := max(frame.H*1.35, 180)
	return geom.Magnitude(raw.Sub(frame.Center())) <= reach
}
