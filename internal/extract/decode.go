package extract

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// Decode tokenizes an XML document and hands each structural event to fn in
// document order, finishing with a DocumentEnd event. Comments, processing
// instructions and directives are skipped. The first error returned by fn
// stops decoding and is returned unchanged.
func Decode(ctx context.Context, r io.Reader, fn func(Event) error) error {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	sawElement := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			if !sawElement {
				return fmt.Errorf("%w: no root element", ErrMalformedInput)
			}
			return fn(EndOfDocument())
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}

		var ev Event
		switch t := tok.(type) {
		case xml.StartElement:
			sawElement = true
			ev = Start(t.Name.Local, t.Attr...)
		case xml.EndElement:
			ev = End(t.Name.Local)
		case xml.CharData:
			ev = Text(string(t))
		default:
			continue
		}

		if err := fn(ev); err != nil {
			return err
		}
	}
}
