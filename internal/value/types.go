// Package value reads and writes Redis entries of any native type through a
// single canonical string. Multi-valued types are flattened by joining their
// elements with ", "; hash fields are rendered as "field: value".
//
// The delimiters are a convention, not an encoding: an element that itself
// contains a comma (or a hash field containing a colon) is split differently
// when written back. Callers that need exact round-trips of such values must
// write them as Scalar.
package value

import (
	"fmt"
	"strings"

	"github.com/kvadminer/kvadminer/internal/kverr"
)

// Type is the native Redis type of an entry.
type Type int

const (
	// Unknown covers types this package does not transcode (streams, module
	// types) and keys whose type could not be read.
	Unknown Type = iota
	None
	Scalar
	List
	Set
	OrderedSet
	FieldMap
)

// String returns the wire name used in HTTP payloads, which matches the name
// Redis reports from TYPE.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Scalar:
		return "string"
	case List:
		return "list"
	case Set:
		return "set"
	case OrderedSet:
		return "zset"
	case FieldMap:
		return "hash"
	default:
		return "unknown"
	}
}

// Writable reports whether Write accepts t as a target type.
func (t Type) Writable() bool {
	switch t {
	case Scalar, List, Set, OrderedSet, FieldMap:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseType.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// fromRedis maps the reply of the TYPE command.
func fromRedis(name string) Type {
	switch name {
	case "none":
		return None
	case "string":
		return Scalar
	case "list":
		return List
	case "set":
		return Set
	case "zset":
		return OrderedSet
	case "hash":
		return FieldMap
	default:
		return Unknown
	}
}

// ParseType parses a type name from a request. It accepts the Redis names
// and the descriptive aliases scalar, orderedset and fieldmap.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "scalar":
		return Scalar, nil
	case "list":
		return List, nil
	case "set":
		return Set, nil
	case "zset", "orderedset", "sorted_set":
		return OrderedSet, nil
	case "hash", "fieldmap", "map":
		return FieldMap, nil
	case "none":
		return None, nil
	case "unknown":
		return Unknown, nil
	default:
		return Unknown, kverr.Invalid("value: parse type", "unsupported type %q", name)
	}
}

// Entry is one key with its type and canonical value.
type Entry struct {
	Key   string `json:"key"`
	Type  Type   `json:"type"`
	Value string `json:"value"`
}

// Exists reports whether the entry was found in the store.
func (e Entry) Exists() bool {
	return e.Type != None
}

func (e Entry) String() string {
	return fmt.Sprintf("%s (%s)", e.Key, e.Type)
}
