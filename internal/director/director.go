// Package director turns a document into a render plan: the ordered list of
// reveal states and the number of frames each one is held.
package director

import (
	"github.com/ivlev/verse2video/internal/config"
	"github.com/ivlev/verse2video/internal/reveal"
	"github.com/ivlev/verse2video/internal/shaper"
	"github.com/ivlev/verse2video/internal/source"
)

const PlanVersion = "1.0"

// Director schedules reveal states on the frame timeline.
type Director struct {
	Timing  config.Timing
	EndCard config.EndCard
	Shaping shaper.Options
}

func NewDirector(timing config.Timing, endCard config.EndCard) *Director {
	return &Director{Timing: timing, EndCard: endCard}
}

// Plan shapes every line of doc and lays its reveal states end to end, each
// held for WordDelay frames. Lines that fail to shape are recorded in
// Plan.Skipped and contribute no frames.
func (d *Director) Plan(doc source.Document) *Plan {
	plan := &Plan{
		Version:   PlanVersion,
		FPS:       d.Timing.FPS,
		WordDelay: d.Timing.WordDelay,
	}

	for i := 0; i < doc.LineCount(); i++ {
		line := doc.Line(i)
		lp := LinePlan{Index: i, Source: line}

		shaped, err := shaper.ShapeWith(line, d.Shaping)
		if err != nil {
			plan.Skipped = append(plan.Skipped, Skip{Line: i, Reason: err.Error(), Err: err})
			plan.Lines = append(plan.Lines, lp)
			continue
		}

		for _, state := range reveal.Sequence(shaped) {
			lp.Cues = append(lp.Cues, Cue{
				Line:  i,
				State: state.Len(),
				Hold:  d.Timing.WordDelay,
				Text:  state.Text(),
			})
		}
		lp.Words = len(shaped.Words)
		plan.Lines = append(plan.Lines, lp)
	}

	if d.EndCard.Content != "" && d.EndCard.Hold > 0 {
		plan.EndCard = &Cue{
			Line: -1,
			Hold: d.EndCard.Hold,
			Text: d.EndCard.Content,
		}
	}

	plan.retime()
	return plan
}
