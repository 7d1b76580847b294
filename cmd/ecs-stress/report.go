package main

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/ashkettle/ecs"
)

// statsObserver aggregates scheduler summaries for the final report.
// Task callbacks arrive from worker goroutines.
type statsObserver struct {
	mu       sync.Mutex
	tasks    map[string]*taskStats
	batches  int
	panics   int
	commands int
	batchSum time.Duration
	batchMax time.Duration
}

type taskStats struct {
	runs    int
	visited int
	total   time.Duration
	max     time.Duration
}

func newStatsObserver() *statsObserver {
	return &statsObserver{tasks: make(map[string]*taskStats)}
}

func (o *statsObserver) TaskCompleted(summary ecs.TaskSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.tasks[summary.Name]
	if st == nil {
		st = &taskStats{}
		o.tasks[summary.Name] = st
	}
	st.runs++
	st.visited += summary.Visited
	st.total += summary.Duration
	if summary.Duration > st.max {
		st.max = summary.Duration
	}
}

func (o *statsObserver) BatchCompleted(summary ecs.BatchSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches++
	o.panics += summary.Panics
	o.commands += summary.Commands
	o.batchSum += summary.Duration
	if summary.Duration > o.batchMax {
		o.batchMax = summary.Duration
	}
}

func writeReport(w io.Writer, scenario Scenario, stats *statsObserver, population int, checksum int64, elapsed time.Duration) {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	fmt.Fprintf(w, "%s entities=%d batches=%d workers=%d churn=%.2f seed=%d\n\n",
		color.GreenString("scenario"),
		scenario.Entities, scenario.Batches, scenario.Workers, scenario.ChurnRate, scenario.Seed)

	names := make([]string, 0, len(stats.tasks))
	for name := range stats.tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Task", "Runs", "Visited", "Avg", "Max"})
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetAutoWrapText(false)
	for _, name := range names {
		st := stats.tasks[name]
		var avg time.Duration
		if st.runs > 0 {
			avg = st.total / time.Duration(st.runs)
		}
		table.Append([]string{
			name,
			fmt.Sprintf("%d", st.runs),
			fmt.Sprintf("%d", st.visited),
			avg.Round(time.Microsecond).String(),
			st.max.Round(time.Microsecond).String(),
		})
	}
	table.Render()
	fmt.Fprintln(w)

	var avgBatch time.Duration
	if stats.batches > 0 {
		avgBatch = stats.batchSum / time.Duration(stats.batches)
	}
	fmt.Fprintf(w, "batches: %d (avg %s, max %s)\n",
		stats.batches, avgBatch.Round(time.Microsecond), stats.batchMax.Round(time.Microsecond))
	fmt.Fprintf(w, "commands applied: %d\n", stats.commands)
	if stats.panics > 0 {
		fmt.Fprintf(w, "%s: %d\n", color.RedString("task panics"), stats.panics)
	}
	fmt.Fprintf(w, "population: %d\n", population)
	fmt.Fprintf(w, "checksum: %d\n", checksum)
	fmt.Fprintf(w, "%s in %s\n", color.GreenString("done"), elapsed.Round(time.Millisecond))
}
