package cmd

import (
	"io"

	"github.com/cheggaaa/pb/v3"

	"github.com/3leaps/drivedrain/pkg/drain"
)

const progressTemplate = `{{counters . }} {{bar . }} {{percent . }} {{string . "name"}}`

// progressBar renders per-item drain progress. A nil *progressBar is a
// no-op so callers need not check whether --progress was given.
type progressBar struct {
	w   io.Writer
	bar *pb.ProgressBar
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w}
}

// Start is called once the listing completes.
func (p *progressBar) Start(total int) {
	if p == nil {
		return
	}
	p.bar = pb.New(total)
	p.bar.SetWriter(p.w)
	p.bar.SetTemplateString(progressTemplate)
	p.bar.Set("name", "")
	p.bar.Start()
}

// Item advances the bar after one item reaches a terminal state.
func (p *progressBar) Item(res drain.ItemResult) {
	if p == nil || p.bar == nil {
		return
	}
	p.bar.Set("name", res.Item.Name)
	p.bar.Increment()
}

func (p *progressBar) Finish() {
	if p == nil || p.bar == nil {
		return
	}
	p.bar.Finish()
}
