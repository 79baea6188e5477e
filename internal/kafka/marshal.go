package kafka

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func UnmarshalEnvelope(b []byte) (library.Envelope, error) {
	var env library.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
