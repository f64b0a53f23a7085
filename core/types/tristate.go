package types

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Tristate is a boolean that can also be left unset.
// The zero value is Unset.
type Tristate int8

const (
	Unset Tristate = iota
	True
	False
)

func Bool(b bool) Tristate {
	if b {
		return True
	}
	return False
}

func (t Tristate) IsSet() bool   { return t != Unset }
func (t Tristate) IsTrue() bool  { return t == True }
func (t Tristate) IsFalse() bool { return t == False }

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unset"
	}
}

func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (t *Tristate) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("tristate: %w", err)
	}
	if b == nil {
		*t = Unset
		return nil
	}
	*t = Bool(*b)
	return nil
}
