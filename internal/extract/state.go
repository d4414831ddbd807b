package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mgpai22/xmeml2srt/internal/subtitle"
	"github.com/mgpai22/xmeml2srt/internal/timecode"
)

var (
	ErrInvalidRootElement = errors.New("invalid root element")
	ErrMalformedInput     = errors.New("malformed input")

	// a generatoritem opened while another one is still open
	ErrNestedCue = fmt.Errorf("%w: nested generatoritem", ErrMalformedInput)
)

// element names, matched case-insensitively
const (
	cueElement         = "generatoritem"
	timeBaseElement    = "timebase"
	ntscElement        = "ntsc"
	startTimeElement   = "start"
	endTimeElement     = "end"
	parameterIDElement = "parameterid"
	valueElement       = "value"

	// parameterid content announcing that the next <value> is the caption
	textMarker = "str"
)

var rootElements = []string{"sequence", "xmeml"}

// Options tune how timestamps are produced.
type Options struct {
	Millis timecode.MillisStyle
	// scale the time base by 1000/1001 when the last <ntsc> seen was TRUE
	HonorNTSC bool
}

// State is the parse state of one conversion. Every transition goes through
// Apply; a State must not be shared between documents.
type State struct {
	timeBase      string
	ntsc          bool
	current       *subtitle.Cue
	awaitingText  bool
	rootValidated bool
	cues          []subtitle.Cue

	buf  strings.Builder
	next int
	done bool
	err  error
	opts Options
}

func NewState(opts Options) *State {
	return &State{opts: opts}
}

// Apply feeds one event to the state machine. The first error is sticky:
// every later call returns it again.
func (s *State) Apply(ev Event) error {
	if s.err != nil {
		return s.err
	}
	if err := s.apply(ev); err != nil {
		s.err = err
		s.current = nil
		s.cues = nil
		return err
	}
	return nil
}

func (s *State) apply(ev Event) error {
	switch ev.Kind {
	case StartElement:
		return s.startElement(ev)
	case EndElement:
		return s.endElement(ev)
	case CharData:
		s.buf.WriteString(ev.Data)
	case DocumentEnd:
		s.done = true
	}
	return nil
}

func (s *State) startElement(ev Event) error {
	s.buf.Reset()

	if strings.EqualFold(ev.Name, cueElement) {
		if s.current != nil {
			return fmt.Errorf("%w (cue %d still open)", ErrNestedCue, s.current.Index)
		}
		s.next++
		s.current = &subtitle.Cue{
			Index: s.next,
			Text:  attrValue(ev.Attrs, "type"),
		}
		return nil
	}

	if !s.rootValidated {
		if !isRootElement(ev.Name) {
			return fmt.Errorf(
				"%w: <%s>, expected <sequence> or <xmeml>",
				ErrInvalidRootElement,
				ev.Name,
			)
		}
		s.rootValidated = true
	}
	return nil
}

func (s *State) endElement(ev Event) error {
	content := s.buf.String()
	s.buf.Reset()

	switch strings.ToLower(ev.Name) {
	case cueElement:
		if s.current != nil {
			s.cues = append(s.cues, *s.current)
		}
		s.current = nil
		s.awaitingText = false

	case timeBaseElement:
		s.timeBase = content

	case ntscElement:
		s.ntsc = strings.EqualFold(strings.TrimSpace(content), "true")

	case startTimeElement:
		if s.current == nil {
			return nil
		}
		ts, err := s.timestamp(content)
		if err != nil {
			return fmt.Errorf("cue %d start: %w", s.current.Index, err)
		}
		s.current.Start = ts

	case endTimeElement:
		if s.current == nil {
			return nil
		}
		ts, err := s.timestamp(content)
		if err != nil {
			return fmt.Errorf("cue %d end: %w", s.current.Index, err)
		}
		s.current.End = ts

	case parameterIDElement:
		if strings.EqualFold(content, textMarker) {
			s.awaitingText = true
		}

	case valueElement:
		if s.awaitingText {
			if s.current != nil {
				s.current.Text = content
			}
			s.awaitingText = false
		}
	}
	return nil
}

// formats a frame count with the time base in effect right now
func (s *State) timestamp(frames string) (string, error) {
	rate, err := timecode.ParseTimeBase(s.timeBase)
	if err != nil {
		return "", err
	}
	n, err := timecode.ParseFrames(frames)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	if s.opts.HonorNTSC {
		rate = timecode.EffectiveRate(rate, s.ntsc)
	}
	ts, err := timecode.Format(n, rate, s.opts.Millis)
	if errors.Is(err, timecode.ErrInvalidFrameCount) {
		return "", fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	return ts, err
}

// Done reports whether the document end has been seen.
func (s *State) Done() bool {
	return s.done
}

// Result returns the completed cues in document order, or the error that
// stopped the conversion.
func (s *State) Result() ([]subtitle.Cue, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.done {
		return nil, fmt.Errorf("%w: document not finished", ErrMalformedInput)
	}
	if s.cues == nil {
		return []subtitle.Cue{}, nil
	}
	return s.cues, nil
}

func isRootElement(name string) bool {
	for _, root := range rootElements {
		if strings.EqualFold(name, root) {
			return true
		}
	}
	return false
}
