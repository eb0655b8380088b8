package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ObjectID is the identity the external tracker assigns to an object.
// Trackers use integers or strings; an integer id never equals a string id,
// even when the string spells the same number. The zero value is IntID(0).
type ObjectID struct {
	str   string
	num   int64
	isStr bool
}

// IntID returns an integer identity.
func IntID(n int64) ObjectID { return ObjectID{num: n} }

// StringID returns a string identity.
func StringID(s string) ObjectID { return ObjectID{str: s, isStr: true} }

// Int returns the integer form. ok is false for string identities.
func (id ObjectID) Int() (n int64, ok bool) { return id.num, !id.isStr }

// IsString reports whether the identity is a string.
func (id ObjectID) IsString() bool { return id.isStr }

// String returns the identity as text, which is also how trackers key it.
func (id ObjectID) String() string {
	if id.isStr {
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

// Value returns the identity as an int64 or a string.
func (id ObjectID) Value() any {
	if id.isStr {
		return id.str
	}
	return id.num
}

// MarshalJSON encodes integer ids as JSON numbers and string ids as strings.
func (id ObjectID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Value())
}

// UnmarshalJSON accepts an integral JSON number or a JSON string.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("object id %s is neither an integer nor a string", data)
	}
	*id = IntID(n)
	return nil
}
