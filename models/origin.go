package models

// DataOrigin tags the provenance of a local entity. The comparator uses
// it to distinguish a genuinely new record from an edited copy of
// something previously synced.
type DataOrigin int

const (
	// OriginUnknown is the zero value for records predating provenance
	// tracking or written by tools that do not set it.
	OriginUnknown DataOrigin = 0

	// OriginFresh marks a record created on this device and never
	// exchanged with the remote store.
	OriginFresh DataOrigin = 1

	// OriginBasedOnRemote marks a record that has been pushed to or
	// pulled from the remote store at least once.
	OriginBasedOnRemote DataOrigin = 2
)

// String implements fmt.Stringer for log output.
func (o DataOrigin) String() string {
	switch o {
	case OriginFresh:
		return "fresh"
	case OriginBasedOnRemote:
		return "based_on_remote"
	default:
		return "unknown"
	}
}
