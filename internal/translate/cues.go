package translate

import (
	"context"
	"fmt"

	"github.com/mgpai22/xmeml2srt/internal/subtitle"
)

// TranslateCues replaces every cue text with its translation, or stacks the
// translation above the original when overlay is set. Indices and timing are
// left untouched.
func TranslateCues(
	ctx context.Context,
	translator Translator,
	cues []subtitle.Cue,
	concurrency int,
	overlay bool,
) ([]subtitle.Cue, error) {
	if len(cues) == 0 {
		return cues, nil
	}

	items := make([]TranslationItem, len(cues))
	for i, cue := range cues {
		items[i] = TranslationItem{Index: i, Text: cue.Text}
	}

	var results []TranslationResult
	var err error
	if ct, ok := translator.(ConcurrentTranslator); ok {
		results, err = ct.TranslateWithConcurrency(ctx, items, concurrency)
	} else {
		results, err = translator.Translate(ctx, items)
	}
	if err != nil {
		return nil, err
	}

	translated := make(map[int]string, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(cues) {
			return nil, fmt.Errorf(
				"translation returned index %d, expected 0-%d",
				r.Index,
				len(cues)-1,
			)
		}
		if _, dup := translated[r.Index]; dup {
			return nil, fmt.Errorf("%w: index %d returned twice", ErrResultMismatch, r.Index)
		}
		translated[r.Index] = r.Text
	}

	return subtitle.MapText(cues, func(i int, text string) string {
		t, ok := translated[i]
		if !ok {
			return text
		}
		if overlay {
			return t + "\n" + text
		}
		return t
	}), nil
}
