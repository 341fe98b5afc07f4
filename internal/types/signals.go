package types

// Notifier receives the manager's observable signals. Implementations are
// called from the manager's event loop and must not call back into it.
type Notifier interface {
	// StatusChanged carries user-facing transfer progress text.
	StatusChanged(status string)
	// EditableListChanged fires after any mutation of the draft list.
	EditableListChanged()
	// ViewOnlyListChanged fires after the vehicle snapshot changes.
	ViewOnlyListChanged()
	// CurrentWaypointChanged reports the vehicle's new current sequence.
	CurrentWaypointChanged(seq uint16)
	// WaypointReached reports a REACHED notice from the vehicle.
	WaypointReached(seq uint16)
	// WaypointDistanceChanged reports metres to the current editable item.
	WaypointDistanceChanged(distance float64)
	// DownloadActive is raised when a download starts and cleared when the
	// final item has been stored.
	DownloadActive(active bool)
	// OfflineEditingStarted fires once when the first item of an offline
	// draft is created.
	OfflineEditingStarted()
}

// NopNotifier discards all signals.
type NopNotifier struct{}

func (NopNotifier) StatusChanged(string) {}

func (NopNotifier) EditableListChanged() {}

func (NopNotifier) ViewOnlyListChanged() {}

func (NopNotifier) CurrentWaypointChanged(uint16) {}

func (NopNotifier) WaypointReached(uint16) {}

func (NopNotifier) WaypointDistanceChanged(float64) {}

func (NopNotifier) DownloadActive(bool) {}

func (NopNotifier) OfflineEditingStarted() {}
