// Package report prints staged CLI progress.
package report

import (
	"fmt"
	"io"
	"time"
)

// Stage is one step of a CLI pipeline.
type Stage struct {
	Number      int
	Total       int
	Name        string
	Description string
}

var (
	StageLoad       = Stage{1, 5, "load", "Loading source audio..."}
	StageAnalyze    = Stage{2, 5, "analyze", "Analyzing spectrum..."}
	StageSelect     = Stage{3, 5, "select", "Selecting notes..."}
	StageSynthesize = Stage{4, 5, "synthesize", "Synthesizing and mixing..."}
	StageWrite      = Stage{5, 5, "write", "Writing output..."}
)

// Reporter writes progress lines to out. Update lines only appear when verbose.
type Reporter struct {
	out       io.Writer
	startTime time.Time
	verbose   bool
}

func NewReporter(out io.Writer, verbose bool) *Reporter {
	return &Reporter{
		out:       out,
		startTime: time.Now(),
		verbose:   verbose,
	}
}

func (r *Reporter) StartStage(stage Stage) {
	fmt.Fprintf(r.out, "[%d/%d] %s\n", stage.Number, stage.Total, stage.Description)
}

func (r *Reporter) Update(format string, args ...any) {
	if r.verbose {
		fmt.Fprintf(r.out, "       %s\n", fmt.Sprintf(format, args...))
	}
}

func (r *Reporter) StageComplete(format string, args ...any) {
	fmt.Fprintf(r.out, "       %s\n", fmt.Sprintf(format, args...))
}

// Done prints the output location and elapsed time.
func (r *Reporter) Done(outputPath string) {
	if outputPath != "" {
		fmt.Fprintf(r.out, "Output saved to: %s\n", outputPath)
	}
	fmt.Fprintf(r.out, "Completed in %.1f seconds\n", time.Since(r.startTime).Seconds())
}

func (r *Reporter) Warning(format string, args ...any) {
	fmt.Fprintf(r.out, "Warning: %s\n", fmt.Sprintf(format, args...))
}
