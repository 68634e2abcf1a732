// Package widgets holds custom Fyne widgets.
package widgets

import (
	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

var _ fyneapp.DoubleTappable = (*DoubleTapLabel)(nil)

// DoubleTapLabel is a list row label that plays its row on double-tap.
// The row index is rebound by the list's update callback.
type DoubleTapLabel struct {
	widget.Label
	doubleTapped func(index int)
	index        int
}

// NewDoubleTapLabel creates a label reporting double-taps to doubleTapped.
func NewDoubleTapLabel(doubleTapped func(index int)) *DoubleTapLabel {
	label := &DoubleTapLabel{
		doubleTapped: doubleTapped,
		index:        -1,
	}
	label.Truncation = fyneapp.TextTruncateEllipsis
	label.ExtendBaseWidget(label)
	return label
}

// DoubleTapped implements fyne.DoubleTappable.
func (l *DoubleTapLabel) DoubleTapped(_ *fyneapp.PointEvent) {
	if l.doubleTapped != nil && l.index >= 0 {
		l.doubleTapped(l.index)
	}
}

// Bind points the label at row index and shows text.
func (l *DoubleTapLabel) Bind(index int, text string, bold bool) {
	l.index = index
	l.TextStyle = fyneapp.TextStyle{Bold: bold}
	l.SetText(text)
}

// Index returns the bound row.
func (l *DoubleTapLabel) Index() int {
	return l.index
}
