package extract

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mgpai22/xmeml2srt/internal/subtitle"
)

// Extractor converts timeline documents into cues. It holds only options,
// every call runs on its own State, so one Extractor may serve many
// goroutines.
type Extractor struct {
	opts Options
}

func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// reads a whole document and returns its cues; on any error no cues are
// returned
func (e *Extractor) Extract(
	ctx context.Context,
	r io.Reader,
) ([]subtitle.Cue, error) {
	state := NewState(e.opts)
	if err := Decode(ctx, r, state.Apply); err != nil {
		return nil, err
	}
	return state.Result()
}

func (e *Extractor) ExtractFile(
	ctx context.Context,
	path string,
) ([]subtitle.Cue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline: %w", err)
	}
	defer file.Close()

	return e.Extract(ctx, file)
}
