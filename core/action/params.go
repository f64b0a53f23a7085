package action

import (
	"maps"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CallerKey is the reserved input under which the registry passes the
// identity of the operator that triggered the call.
const CallerKey = "_caller"

type Params map[string]string

func (p Params) Caller() string {
	return p[CallerKey]
}

func (p Params) String() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// Unmarshal decodes the string inputs into v through their JSON form.
func (p Params) Unmarshal(v any) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// withCaller copies the inputs and sets the reserved identity key,
// overriding whatever the model may have put there.
func withCaller(inputs map[string]string, caller string) Params {
	p := make(Params, len(inputs)+1)
	maps.Copy(p, inputs)
	p[CallerKey] = caller
	return p
}
