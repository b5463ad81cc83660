package graph

import "fmt"

// Instrument is a connected piece of hardware with one or more channels.
type Instrument struct {
	name     string
	channels []*Channel
	graph    *Graph
}

// NewInstrument creates an instrument with no channels.
func NewInstrument(name string) *Instrument {
	return &Instrument{name: name}
}

// Name returns the instrument name.
func (i *Instrument) Name() string {
	return i.name
}

// AddChannel appends a channel with the given streams.
func (i *Instrument) AddChannel(name string, streams ...Stream) (*Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("instrument %q: channel name cannot be empty", i.name)
	}
	if i.Channel(name) != nil {
		return nil, fmt.Errorf("instrument %q: channel %q already exists", i.name, name)
	}
	c := &Channel{
		instrument: i,
		hwname:     name,
		streams:    append([]Stream(nil), streams...),
	}
	i.channels = append(i.channels, c)
	if i.graph != nil {
		i.graph.bump()
	}
	return c, nil
}

// Channels returns the channels in creation order.
func (i *Instrument) Channels() []*Channel {
	return append([]*Channel(nil), i.channels...)
}

// Channel returns the named channel or nil.
func (i *Instrument) Channel(name string) *Channel {
	for _, c := range i.channels {
		if c.hwname == name {
			return c
		}
	}
	return nil
}

// Channel is one hardware channel of an instrument.
type Channel struct {
	instrument *Instrument
	hwname     string
	streams    []Stream
}

func (*Channel) producer() {}

// ProducerName returns the channel's hardware name, e.g. "CH1".
func (c *Channel) ProducerName() string {
	return c.hwname
}

// QualifiedName returns "instrument.channel".
func (c *Channel) QualifiedName() string {
	return c.instrument.name + "." + c.hwname
}

// Instrument returns the owning instrument.
func (c *Channel) Instrument() *Instrument {
	return c.instrument
}

// StreamCount returns the number of output streams.
func (c *Channel) StreamCount() int {
	return len(c.streams)
}

// Stream returns the i'th output stream.
func (c *Channel) Stream(i int) (Stream, bool) {
	if i < 0 || i >= len(c.streams) {
		return Stream{}, false
	}
	return c.streams[i], true
}
