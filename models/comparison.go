package models

// ComparisonResult classifies the divergence of one entity between the
// local and remote side. Outcomes are mutually exclusive and computed
// fresh each cycle, never cached across cycles.
type ComparisonResult int

const (
	// ComparisonSame: both sides hold identical content.
	ComparisonSame ComparisonResult = 1

	// ComparisonLocalNewer: the local copy supersedes the remote one
	// (or the record only exists locally) and should be pushed.
	ComparisonLocalNewer ComparisonResult = 2

	// ComparisonRemoteNewer: the remote copy supersedes the local one
	// (or the record only exists remotely) and should be pulled.
	ComparisonRemoteNewer ComparisonResult = 3

	// ComparisonConflict: both sides changed since the last common sync
	// point and contents differ; resolution policy decides.
	ComparisonConflict ComparisonResult = 4

	// ComparisonNeedsMerge: independently created records collided on
	// one id; the merger unions them.
	ComparisonNeedsMerge ComparisonResult = 5
)

// String implements fmt.Stringer for log output.
func (r ComparisonResult) String() string {
	switch r {
	case ComparisonSame:
		return "same"
	case ComparisonLocalNewer:
		return "local_newer"
	case ComparisonRemoteNewer:
		return "remote_newer"
	case ComparisonConflict:
		return "conflict"
	case ComparisonNeedsMerge:
		return "needs_merge"
	default:
		return "unknown"
	}
}

// Comparison pairs one entity id with its classification for the cycle.
type Comparison struct {
	ID     string           `json:"id"`
	Kind   EntityKind       `json:"kind"`
	Result ComparisonResult `json:"result"`
}
