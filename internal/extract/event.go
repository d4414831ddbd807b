package extract

import (
	"encoding/xml"
	"strings"
)

// kind of document-structure event
type Kind int

const (
	StartElement Kind = iota
	EndElement
	CharData
	DocumentEnd
)

func (k Kind) String() string {
	switch k {
	case StartElement:
		return "start"
	case EndElement:
		return "end"
	case CharData:
		return "text"
	case DocumentEnd:
		return "document-end"
	default:
		return "unknown"
	}
}

// Event is one structural event of the timeline document, in document order.
// Name is set for element events, Attrs only for StartElement and Data only
// for CharData.
type Event struct {
	Kind  Kind
	Name  string
	Attrs []xml.Attr
	Data  string
}

func Start(name string, attrs ...xml.Attr) Event {
	return Event{Kind: StartElement, Name: name, Attrs: attrs}
}

func End(name string) Event {
	return Event{Kind: EndElement, Name: name}
}

func Text(data string) Event {
	return Event{Kind: CharData, Data: data}
}

func EndOfDocument() Event {
	return Event{Kind: DocumentEnd}
}

// attribute lookup by local name, case-insensitive
func attrValue(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}
