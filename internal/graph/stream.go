package graph

import (
	"fmt"

	"github.com/mldulaney/scopehal-apps/internal/unit"
)

// StreamType is the kind of data a stream carries.
type StreamType int

const (
	StreamAnalog StreamType = iota + 1
	StreamDigital
	StreamDigitalBus
	StreamProtocol
	StreamEye
	StreamSpectrum
)

var streamTypeNames = map[StreamType]string{
	StreamAnalog:     "analog",
	StreamDigital:    "digital",
	StreamDigitalBus: "digital_bus",
	StreamProtocol:   "protocol",
	StreamEye:        "eye",
	StreamSpectrum:   "spectrum",
}

// String returns the snake_case type name used in graph files.
func (t StreamType) String() string {
	if name, ok := streamTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("stream_type(%d)", int(t))
}

// ParseStreamType is the inverse of StreamType.String.
func ParseStreamType(s string) (StreamType, error) {
	for t, name := range streamTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown stream type %q", s)
}

// Stream describes one output of a producer.
type Stream struct {
	Name string
	Type StreamType
	Unit unit.Unit // vertical unit of the samples
}

// Producer is anything that owns output streams. The set is closed: only
// *Channel (hardware) and *Node (processing) implement it.
type Producer interface {
	ProducerName() string
	StreamCount() int
	Stream(i int) (Stream, bool)
	producer()
}

// StreamDescriptor references one output stream of a producer. The zero
// value is the "no stream" sentinel.
//
// A descriptor does not own its producer. Removing a producer from the
// graph rebinds every input that referenced it before the producer goes
// away, so a bound descriptor never outlives its target.
type StreamDescriptor struct {
	Producer Producer
	Index    int
}

// None returns the "no stream" sentinel.
func None() StreamDescriptor {
	return StreamDescriptor{}
}

// IsNone reports whether d is the sentinel.
func (d StreamDescriptor) IsNone() bool {
	return d.Producer == nil
}

// Equal compares by producer identity and stream index.
func (d StreamDescriptor) Equal(o StreamDescriptor) bool {
	return d.Producer == o.Producer && d.Index == o.Index
}

// Stream returns the referenced stream's metadata.
func (d StreamDescriptor) Stream() (Stream, bool) {
	if d.Producer == nil {
		return Stream{}, false
	}
	return d.Producer.Stream(d.Index)
}

// Type returns the referenced stream's type, or 0 for the sentinel.
func (d StreamDescriptor) Type() StreamType {
	s, ok := d.Stream()
	if !ok {
		return 0
	}
	return s.Type
}

// Node returns the processing node behind d, if any.
func (d StreamDescriptor) Node() (*Node, bool) {
	n, ok := d.Producer.(*Node)
	return n, ok
}

// Channel returns the hardware channel behind d, if any.
func (d StreamDescriptor) Channel() (*Channel, bool) {
	c, ok := d.Producer.(*Channel)
	return c, ok
}

// Name is the display label: "NULL" for the sentinel, the producer name for
// single-stream producers, and "producer.stream" otherwise.
func (d StreamDescriptor) Name() string {
	if d.Producer == nil {
		return "NULL"
	}
	if d.Producer.StreamCount() > 1 {
		s, _ := d.Producer.Stream(d.Index)
		return d.Producer.ProducerName() + "." + s.Name
	}
	return d.Producer.ProducerName()
}

// String implements fmt.Stringer.
func (d StreamDescriptor) String() string {
	return d.Name()
}

// Ref is the unambiguous reference Resolve accepts: "NULL",
// "instrument.channel[.stream]" or "node[.stream]". Unlike Name it does not
// change when a node is renamed.
func (d StreamDescriptor) Ref() string {
	var base string
	switch p := d.Producer.(type) {
	case nil:
		return "NULL"
	case *Channel:
		base = p.QualifiedName()
	case *Node:
		base = p.HWName()
	default:
		base = p.ProducerName()
	}
	if d.Producer.StreamCount() > 1 {
		s, _ := d.Producer.Stream(d.Index)
		if s.Name == "" {
			return fmt.Sprintf("%s.%d", base, d.Index)
		}
		return base + "." + s.Name
	}
	return base
}
