package ports

import "time"

// Clock returns a monotonically non-decreasing timestamp.
type Clock interface {
	Now() time.Time
}
