package subtitle

import "io"

// represents one subtitle cue extracted from a timeline
type Cue struct {
	Index int
	Start string
	End   string
	Text  string
}

// interface for rendering cues to a stream or a file
type Writer interface {
	Encode(out io.Writer, cues []Cue) error
	Write(cues []Cue, path string) error
}

// returns a copy of cues with texts replaced through fn, timing untouched
func MapText(cues []Cue, fn func(i int, text string) string) []Cue {
	out := make([]Cue, len(cues))
	for i, c := range cues {
		c.Text = fn(i, c.Text)
		out[i] = c
	}
	return out
}
