package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// Update sets both the finished and the total amount.
func (b *ProgressBar) Update(finished, total uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished = finished
	b.Total = total
}
