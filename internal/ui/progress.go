package ui

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// Progress tracks a batch of operations.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a progress bar for total steps.
func NewProgress(total int, description string) *Progress {
	if Quiet {
		return &Progress{}
	}
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(UseColors),
	}
	if UseUnicode {
		opts = append(opts, progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerPadding: "░",
			BarStart:      "▕",
			BarEnd:        "▏",
		}))
	}
	return &Progress{bar: progressbar.NewOptions(total, opts...)}
}

// Describe changes the text shown next to the bar.
func (p *Progress) Describe(description string) {
	if p.bar != nil {
		p.bar.Describe(description)
	}
}

// Step advances the bar by one.
func (p *Progress) Step() {
	if p.bar != nil {
		p.bar.Add(1) //nolint:errcheck
	}
}

// Done completes and clears the bar.
func (p *Progress) Done() {
	if p.bar != nil {
		p.bar.Finish() //nolint:errcheck
	}
}
