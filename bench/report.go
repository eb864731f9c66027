package bench

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"
)

// Report writes results as one table per benchmark case. Throughput is
// relative to the sync.Mutex baseline when it is present in the case; the
// per-worker mean and standard deviation show how evenly each variant
// spread the cycles across workers.
func Report(w io.Writer, results []Result) error {
	for _, group := range groupByCase(results) {
		first := group[0]
		fmt.Fprintf(w, "measure=%v threads=%d locked=%v unlocked=%v\n",
			first.Measure, first.Threads, first.Locked, first.Unlocked)

		baseline := 0.0
		for _, r := range group {
			if r.Name == "sync" {
				baseline = r.Throughput()
			}
		}

		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "name\tops/s\tmean/worker\tstddev\trelative")
		for _, r := range group {
			rel := "-"
			if baseline > 0 {
				rel = fmt.Sprintf("%.2fx", r.Throughput()/baseline)
			}
			stddev := 0.0
			if len(r.Ops) > 1 {
				stddev = stat.StdDev(r.Ops, nil)
			}
			fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t%.0f\t%s\n",
				r.Name,
				r.Throughput(),
				stat.Mean(r.Ops, nil),
				stddev,
				rel,
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// groupByCase splits results into runs sharing the same case parameters,
// preserving order. Run emits them contiguously, so a simple scan suffices.
func groupByCase(results []Result) [][]Result {
	var groups [][]Result
	for _, r := range results {
		n := len(groups)
		if n > 0 && sameCase(groups[n-1][0], r) {
			groups[n-1] = append(groups[n-1], r)
			continue
		}
		groups = append(groups, []Result{r})
	}
	return groups
}

func sameCase(a, b Result) bool {
	return a.Measure == b.Measure && a.Threads == b.Threads &&
		a.Locked == b.Locked && a.Unlocked == b.Unlocked
}
