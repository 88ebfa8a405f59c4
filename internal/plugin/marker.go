package plugin

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// InstanceMarker identifies the loaded runtime for diagnostic correlation.
type InstanceMarker struct {
	ID       uuid.UUID
	LoadedAt time.Time
}

var marker = sync.OnceValue(func() InstanceMarker {
	return InstanceMarker{ID: uuid.New(), LoadedAt: time.Now().UTC()}
})

// Marker returns the process-wide marker, created on first call.
func Marker() InstanceMarker {
	return marker()
}
