package filmstrip

import (
	"time"

	"github.com/coastcube/filmstrip/pkg/config"
)

// Epoch is one partition of the analysis time range
type Epoch struct {
	Start time.Time
	End   time.Time
}

// Label is the epoch's start date, the form used in output filenames
func (e Epoch) Label() string {
	return e.Start.Format("2006-01-02")
}

// Partition splits [start, end) into consecutive epochs of the given time
// step. The final epoch is clamped to end and may be shorter than a full
// step.
func Partition(start, end time.Time, step config.TimeStepData) []Epoch {
	var epochs []Epoch
	for t := start; t.Before(end); {
		next := t.AddDate(step.Years, step.Months, 0)
		if next.After(end) {
			next = end
		}
		epochs = append(epochs, Epoch{Start: t, End: next})
		t = next
	}
	return epochs
}
