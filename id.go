package langtree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedKey is returned when a Key or identifier string cannot be decoded.
var ErrMalformedKey = errors.New("malformed key")

// keySeparator joins the two components of a Key. Both components are
// decimal digits only, so the separator can never appear inside one.
const keySeparator = "/"

// ID is a composite catalog identifier. Two IDs are equal iff both
// components match.
type ID struct {
	ObjectID int64
	OwnerID  int64
}

// Key is the canonical, hashable form of an ID ("object/owner"). Every map
// and set in this package is keyed by Key.
type Key string

// Encode returns the canonical Key for id.
func Encode(id ID) Key {
	return Key(strconv.FormatInt(id.ObjectID, 10) + keySeparator + strconv.FormatInt(id.OwnerID, 10))
}

// Decode is the inverse of Encode.
func Decode(k Key) (ID, error) {
	obj, owner, ok := strings.Cut(string(k), keySeparator)
	if !ok {
		return ID{}, fmt.Errorf("decode %q: %w", k, ErrMalformedKey)
	}
	o, err := parseComponent(obj)
	if err != nil {
		return ID{}, fmt.Errorf("decode %q: object id: %w", k, err)
	}
	w, err := parseComponent(owner)
	if err != nil {
		return ID{}, fmt.Errorf("decode %q: owner id: %w", k, err)
	}
	return ID{ObjectID: o, OwnerID: w}, nil
}

// ParseID parses the "object/owner" string form of an identifier.
func ParseID(s string) (ID, error) {
	return Decode(Key(strings.TrimSpace(s)))
}

// parseComponent accepts plain non-negative decimal integers only. Signs,
// spaces and leading zeros are rejected so that every valid Key has exactly
// one spelling.
func parseComponent(s string) (int64, error) {
	if s == "" {
		return 0, ErrMalformedKey
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrMalformedKey
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, ErrMalformedKey
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrMalformedKey
	}
	return n, nil
}

// Key returns Encode(id).
func (id ID) Key() Key { return Encode(id) }

// IsZero reports whether id is the missing identifier {0, 0}.
func (id ID) IsZero() bool { return id.ObjectID == 0 && id.OwnerID == 0 }

// Valid reports whether both components are non-negative and id is not zero.
func (id ID) Valid() bool {
	return !id.IsZero() && id.ObjectID >= 0 && id.OwnerID >= 0
}

func (id ID) String() string { return string(Encode(id)) }

// Compare orders identifiers by object id, then owner id.
func (id ID) Compare(other ID) int {
	switch {
	case id.ObjectID < other.ObjectID:
		return -1
	case id.ObjectID > other.ObjectID:
		return 1
	case id.OwnerID < other.OwnerID:
		return -1
	case id.OwnerID > other.OwnerID:
		return 1
	}
	return 0
}

// Compare orders keys numerically by their decoded components. Malformed
// keys sort after well-formed ones and compare to each other as strings.
func (k Key) Compare(other Key) int {
	a, errA := Decode(k)
	b, errB := Decode(other)
	switch {
	case errA == nil && errB == nil:
		return a.Compare(b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(string(k), string(other))
}

// MarshalJSON writes the array form [object, owner] used by the catalog API.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{id.ObjectID, id.OwnerID})
}

// UnmarshalJSON accepts the array form [object, owner], the string form
// "object/owner", and the object form {"object_id": o, "owner_id": w}.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("unmarshal id: empty input: %w", ErrMalformedKey)
	}
	switch data[0] {
	case '[':
		var pair []int64
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("unmarshal id: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("unmarshal id: want 2 components, got %d: %w", len(pair), ErrMalformedKey)
		}
		*id = ID{ObjectID: pair[0], OwnerID: pair[1]}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal id: %w", err)
		}
		parsed, err := ParseID(s)
		if err != nil {
			return fmt.Errorf("unmarshal id: %w", err)
		}
		*id = parsed
	case '{':
		var obj struct {
			ObjectID int64 `json:"object_id"`
			OwnerID  int64 `json:"owner_id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("unmarshal id: %w", err)
		}
		*id = ID{ObjectID: obj.ObjectID, OwnerID: obj.OwnerID}
	default:
		return fmt.Errorf("unmarshal id: unsupported form %s: %w", data, ErrMalformedKey)
	}
	if id.ObjectID < 0 || id.OwnerID < 0 {
		return fmt.Errorf("unmarshal id: negative component in %s: %w", data, ErrMalformedKey)
	}
	return nil
}
