package waypoint

import (
	"github.com/pkg/errors"
)

// List is an ordered, owning collection of waypoints. Sequence numbers are
// re-stamped to the list index after every mutation, so callers must treat
// Seq as volatile across edits.
type List struct {
	items []*Waypoint
}

func (l *List) Len() int { return len(l.items) }

// At returns the waypoint at index, or nil when the index is out of range.
func (l *List) At(index int) *Waypoint {
	if index < 0 || index >= len(l.items) {
		return nil
	}
	return l.items[index]
}

// Items returns the backing slice. The list keeps ownership; callers must
// not re-order it.
func (l *List) Items() []*Waypoint { return l.items }

func (l *List) Append(wp *Waypoint) {
	wp.Seq = uint16(len(l.items))
	l.items = append(l.items, wp)
}

func (l *List) Clear() {
	l.items = nil
}

func (l *List) restamp(from int) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(l.items); i++ {
		l.items[i].Seq = uint16(i)
	}
}

// Remove deletes the waypoint at seq. If it carried the current flag, the
// successor is promoted, or the predecessor when the last item was removed.
func (l *List) Remove(seq int) error {
	if seq < 0 || seq >= len(l.items) {
		return errors.Errorf("remove: no waypoint with seq %d", seq)
	}
	removed := l.items[seq]
	if removed.Current {
		if seq+1 < len(l.items) {
			l.items[seq+1].Current = true
		} else if seq-1 >= 0 {
			l.items[seq-1].Current = true
		}
	}
	l.items = append(l.items[:seq], l.items[seq+1:]...)
	l.restamp(seq)
	return nil
}

// Move shifts the waypoint at from to position to, preserving its current
// flag.
func (l *List) Move(from, to int) error {
	if from < 0 || from >= len(l.items) || to < 0 || to >= len(l.items) {
		return errors.Errorf("move: indices %d -> %d out of range", from, to)
	}
	if from == to {
		return nil
	}
	wp := l.items[from]
	if from < to {
		copy(l.items[from:to], l.items[from+1:to+1])
	} else {
		copy(l.items[to+1:from+1], l.items[to:from])
	}
	l.items[to] = wp
	if from < to {
		l.restamp(from)
	} else {
		l.restamp(to)
	}
	return nil
}

// SetCurrent marks seq as the single current waypoint.
func (l *List) SetCurrent(seq uint16) error {
	if int(seq) >= len(l.items) {
		return errors.Errorf("set current: no waypoint with seq %d", seq)
	}
	for _, wp := range l.items {
		wp.Current = wp.Seq == seq
	}
	return nil
}

// CurrentIndex returns the index of the waypoint flagged current, or -1.
func (l *List) CurrentIndex() int {
	for i, wp := range l.items {
		if wp.Current {
			return i
		}
	}
	return -1
}

// DualList pairs the locally mutable draft with the view-only snapshot of
// the vehicle's last reported mission. The current-editable back-reference
// is an index into the editable list, -1 when invalid.
type DualList struct {
	editable        List
	viewOnly        List
	currentEditable int
}

func NewDualList() *DualList {
	return &DualList{currentEditable: -1}
}

func (d *DualList) Editable() *List { return &d.editable }
func (d *DualList) ViewOnly() *List { return &d.viewOnly }

// CurrentEditable returns the editable waypoint flagged current, or nil.
func (d *DualList) CurrentEditable() *Waypoint {
	return d.editable.At(d.currentEditable)
}

func (d *DualList) refreshCurrentEditable() {
	d.currentEditable = d.editable.CurrentIndex()
}

// AddEditable appends to the draft. With enforceFirstActive the first item
// of an empty list is flagged current.
func (d *DualList) AddEditable(wp *Waypoint, enforceFirstActive bool) {
	if enforceFirstActive && d.editable.Len() == 0 {
		wp.Current = true
	}
	d.editable.Append(wp)
	d.refreshCurrentEditable()
}

func (d *DualList) RemoveEditable(seq int) error {
	if err := d.editable.Remove(seq); err != nil {
		return err
	}
	d.refreshCurrentEditable()
	return nil
}

func (d *DualList) MoveEditable(from, to int) error {
	if err := d.editable.Move(from, to); err != nil {
		return err
	}
	d.refreshCurrentEditable()
	return nil
}

func (d *DualList) ClearEditable() {
	d.editable.Clear()
	d.currentEditable = -1
}

func (d *DualList) SetCurrentEditable(seq uint16) error {
	if err := d.editable.SetCurrent(seq); err != nil {
		return err
	}
	d.refreshCurrentEditable()
	return nil
}

// ReplaceEditable swaps in a freshly loaded draft, re-stamping sequence
// numbers.
func (d *DualList) ReplaceEditable(items []*Waypoint) {
	d.editable.Clear()
	for _, wp := range items {
		d.editable.Append(wp)
	}
	d.refreshCurrentEditable()
}

func (d *DualList) ClearViewOnly() {
	d.viewOnly.Clear()
}

func (d *DualList) AppendViewOnly(wp *Waypoint) {
	d.viewOnly.Append(wp)
}

// AppendDownloaded files one downloaded item into the view-only list and,
// when readToEdit is set, mirrors a copy into the draft so the current
// flag keeps pointing at the same mission position.
func (d *DualList) AppendDownloaded(wp *Waypoint, readToEdit bool) {
	d.viewOnly.Append(wp)
	if readToEdit {
		mirror := *wp
		d.editable.Append(&mirror)
		d.refreshCurrentEditable()
	}
}

// SetViewOnlyCurrent flips the current flags so that exactly the item whose
// stored sequence equals seq carries it, or none when seq is unknown.
func (d *DualList) SetViewOnlyCurrent(seq uint16) {
	for _, wp := range d.viewOnly.Items() {
		wp.Current = wp.Seq == seq
	}
}
