package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// decodeInput returns arg itself, or its JSON decoding when asJSON is set.
// Numbers decode to json.Number so integers stay exact.
func decodeInput(arg string, asJSON bool) (any, error) {
	if !asJSON {
		return arg, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid JSON input", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid JSON input: trailing data after %q", arg))
	}
	return v, nil
}
