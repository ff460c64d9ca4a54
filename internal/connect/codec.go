package connect

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// jsonCodec is a Connect codec for plain Go structs. It registers under
// the "json" name, so requests use the application/json content type.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal keeps numbers as json.Number so event payloads pass through
// unchanged.
func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("invalid JSON message: %w", err)
	}
	return nil
}
