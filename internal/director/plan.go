package director

// Plan is the full frame sequence of a video: every reveal state of every
// line in document order, each held for a number of frames.
type Plan struct {
	Version     string     `yaml:"version"`
	FPS         int        `yaml:"fps"`
	WordDelay   int        `yaml:"word_delay"`
	Lines       []LinePlan `yaml:"lines"`
	EndCard     *Cue       `yaml:"end_card,omitempty"`
	TotalFrames int        `yaml:"total_frames"`
	Skipped     []Skip     `yaml:"skipped,omitempty"`
}

// LinePlan holds the cues of one document line. Empty lines have no cues.
type LinePlan struct {
	Index  int    `yaml:"index"`
	Source string `yaml:"source"`
	Words  int    `yaml:"words"`
	Cues   []Cue  `yaml:"cues,omitempty"`
}

// Cue is one rendered image and how long it stays on screen.
type Cue struct {
	Line       int     `yaml:"line"`
	State      int     `yaml:"state"` // number of revealed words
	StartFrame int     `yaml:"start_frame"`
	Hold       int     `yaml:"hold"`
	Time       float64 `yaml:"time"` // seconds
	Text       string  `yaml:"text"` // display order, drawn as is
}

// Skip records a line that could not be shaped and was left out.
type Skip struct {
	Line   int    `yaml:"line"`
	Reason string `yaml:"reason"`
	Err    error  `yaml:"-"`
}

// Cues flattens the plan into render order, end card included.
func (p *Plan) Cues() []Cue {
	var cues []Cue
	for _, l := range p.Lines {
		cues = append(cues, l.Cues...)
	}
	if p.EndCard != nil {
		cues = append(cues, *p.EndCard)
	}
	return cues
}

// WordCount is the number of words revealed across all lines.
func (p *Plan) WordCount() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Words
	}
	return n
}

// retime recomputes start frames, times and the total from the holds.
func (p *Plan) retime() {
	frame := 0
	stamp := func(c *Cue) {
		c.StartFrame = frame
		c.Time = float64(frame) / float64(p.FPS)
		frame += c.Hold
	}
	for i := range p.Lines {
		for j := range p.Lines[i].Cues {
			stamp(&p.Lines[i].Cues[j])
		}
	}
	if p.EndCard != nil {
		stamp(p.EndCard)
	}
	p.TotalFrames = frame
}
