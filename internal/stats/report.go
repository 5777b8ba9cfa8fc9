package stats

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/cache"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/github"
)

// Phase is one timed step of a collection run.
type Phase struct {
	Name     string
	Duration time.Duration
}

// Report carries every figure a render needs, plus per-phase timings.
type Report struct {
	Account github.Account

	Repos        int
	Contributed  int
	Stars        int
	Commits      int
	Issues       int
	PullRequests int
	LOC          cache.Totals

	mu     sync.Mutex
	Phases []Phase
}

func (r *Report) addPhase(name string, d time.Duration) {
	r.Phases = append(r.Phases, Phase{Name: name, Duration: d})
}

// addPhaseLocked is the concurrent-safe variant used by the parallel phase.
func (r *Report) addPhaseLocked(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Phases = append(r.Phases, Phase{Name: name, Duration: d})
}

// Total returns the summed duration of all phases.
func (r *Report) Total() time.Duration {
	var total time.Duration
	for _, p := range r.Phases {
		total += p.Duration
	}
	return total
}

// WriteTimings prints the aligned per-phase timing table.
func (r *Report) WriteTimings(w io.Writer) {
	fmt.Fprintln(w, "Calculation times:")
	for _, p := range r.Phases {
		fmt.Fprintf(w, "%-23s%12s\n", "   "+p.Name+":", formatDuration(p.Duration))
	}
	fmt.Fprintf(w, "%-23s%12s\n", "   total:", formatDuration(r.Total()))
}

// formatDuration renders sub-second phases in milliseconds, longer ones in
// seconds, both to four places.
func formatDuration(d time.Duration) string {
	if d > time.Second {
		return fmt.Sprintf("%.4f s", d.Seconds())
	}
	return fmt.Sprintf("%.4f ms", float64(d.Nanoseconds())/1e6)
}
