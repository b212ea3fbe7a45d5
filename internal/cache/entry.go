package cache

import (
	"errors"
	"fmt"
)

// State is the logical state of a cached key
type State int

const (
	// Absent means the key was never written or has been deleted
	Absent State = iota
	// Negative means a render ran and produced no data
	Negative
	// Populated means the key holds a rendered payload (possibly empty)
	Populated
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Negative:
		return "negative"
	case Populated:
		return "populated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Entry is a tagged cache value. Negative entries are explicit, so an empty
// payload is never confused with "no data".
type Entry struct {
	State   State
	Payload []byte
}

// PopulatedEntry wraps a rendered payload
func PopulatedEntry(payload []byte) Entry {
	return Entry{State: Populated, Payload: payload}
}

// NegativeEntry marks a key whose render produced no data
func NegativeEntry() Entry {
	return Entry{State: Negative}
}

// AbsentEntry is what Read returns for a missing key
func AbsentEntry() Entry {
	return Entry{State: Absent}
}

// ErrCorruptEntry is returned when stored bytes do not decode to an entry
var ErrCorruptEntry = errors.New("corrupt cache entry")

// Stored layout: one tag byte, then for populated entries one codec byte and the body.
const (
	tagNegative  byte = 'N'
	tagPopulated byte = 'P'
)

// Codec converts entries to and from their stored form
type Codec struct {
	compression string
}

// NewCodec returns a codec compressing populated payloads with algorithm
func NewCodec(algorithm string) *Codec {
	return &Codec{compression: algorithm}
}

// Encode serializes e. Absent entries cannot be stored.
func (c *Codec) Encode(e Entry) ([]byte, error) {
	switch e.State {
	case Negative:
		return []byte{tagNegative}, nil

	case Populated:
		body, codec, err := compress(e.Payload, c.compression)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, len(body)+2)
		out = append(out, tagPopulated, codec)
		return append(out, body...), nil

	default:
		return nil, fmt.Errorf("cannot encode entry in state %s", e.State)
	}
}

// Decode parses stored bytes. Any codec can decode any stored entry.
func (c *Codec) Decode(raw []byte) (Entry, error) {
	if len(raw) == 0 {
		return Entry{}, fmt.Errorf("%w: empty value", ErrCorruptEntry)
	}

	switch raw[0] {
	case tagNegative:
		if len(raw) != 1 {
			return Entry{}, fmt.Errorf("%w: negative marker with %d trailing bytes", ErrCorruptEntry, len(raw)-1)
		}
		return NegativeEntry(), nil

	case tagPopulated:
		if len(raw) < 2 {
			return Entry{}, fmt.Errorf("%w: missing codec byte", ErrCorruptEntry)
		}
		payload, err := decompress(raw[2:], raw[1])
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
		}
		// Copy so callers never alias the store's buffer
		return PopulatedEntry(append([]byte{}, payload...)), nil

	default:
		return Entry{}, fmt.Errorf("%w: unknown tag %q", ErrCorruptEntry, raw[0])
	}
}
