// Package embed splices a binary file into a script template as base64 text,
// producing the payload bound to the document's open action.
package embed

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

// DefaultToken is the placeholder the game templates reserve for the data file.
const DefaultToken = "__b64_data__"

// ErrTokenNotFound is returned when the template does not contain the token.
var ErrTokenNotFound = errors.New("token not found in template")

// Replace returns template with the first occurrence of token replaced by the
// standard base64 encoding of payload. Later occurrences are left as is.
func Replace(template []byte, token string, payload []byte) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("embed: empty token")
	}
	i := bytes.Index(template, []byte(token))
	if i < 0 {
		return nil, fmt.Errorf("embed %q: %w", token, ErrTokenNotFound)
	}
	enc := base64.StdEncoding
	out := make([]byte, 0, len(template)-len(token)+enc.EncodedLen(len(payload)))
	out = append(out, template[:i]...)
	out = enc.AppendEncode(out, payload)
	out = append(out, template[i+len(token):]...)
	return out, nil
}
