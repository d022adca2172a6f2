// util/json.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

///////////////////////////////////////////////////////////////////////////
// JSON

// UnmarshalJSON unmarshals the bytes into the given type but goes through
// some efforts to return useful error messages when the JSON is invalid.
func UnmarshalJSON[T any](b []byte, out *T) error {
	err := json.Unmarshal(b, out)
	if err == nil {
		return nil
	}

	decodeOffset := func(offset int64) (line, char int) {
		line, char = 1, 1
		for i := 0; i < int(offset) && i < len(b); i++ {
			if b[i] == '\n' {
				line++
				char = 1
			} else {
				char++
			}
		}
		return
	}

	var serr *json.SyntaxError
	var terr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &serr):
		line, char := decodeOffset(serr.Offset)
		return fmt.Errorf("line %d, character %d: %w", line, char, err)

	case errors.As(err, &terr):
		line, char := decodeOffset(terr.Offset)
		return fmt.Errorf("line %d, character %d: %s value for %s.%s invalid for type %s: %w",
			line, char, terr.Value, terr.Struct, terr.Field, terr.Type.String(), err)

	default:
		return err
	}
}

// DuplicateJSONKey represents a key that appears more than once in the
// same JSON object.
type DuplicateJSONKey struct {
	Path string // dotted path to the object holding the key, e.g. "stars.KJFK"
	Key  string
}

func (d DuplicateJSONKey) String() string {
	if d.Path == "" {
		return d.Key
	}
	return d.Path + "." + d.Key
}

// FindDuplicateJSONKeys walks the JSON token stream and returns every key
// that is repeated within a single object, in the order they are found.
// encoding/json silently keeps the last value in that case, which
// usually hides an editing mistake in a reference data file. Malformed
// JSON stops the scan; the keys found up to that point are returned.
func FindDuplicateJSONKeys(data []byte) []DuplicateJSONKey {
	dec := json.NewDecoder(bytes.NewReader(data))
	var dupes []DuplicateJSONKey
	_ = walkJSONValue(dec, nil, &dupes)
	return dupes
}

func walkJSONValue(dec *json.Decoder, path []string, dupes *[]DuplicateJSONKey) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil // scalar
	}

	switch delim {
	case '{':
		seen := make(map[string]bool)
		for dec.More() {
			ktok, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := ktok.(string)
			if !ok {
				return fmt.Errorf("unexpected object key %v", ktok)
			}
			if seen[key] {
				*dupes = append(*dupes, DuplicateJSONKey{Path: strings.Join(path, "."), Key: key})
			}
			seen[key] = true

			if err := walkJSONValue(dec, append(path, key), dupes); err != nil {
				return err
			}
		}

	case '[':
		// Array elements report the path of the array itself.
		for dec.More() {
			if err := walkJSONValue(dec, path, dupes); err != nil {
				return err
			}
		}
	}

	// Closing delimiter.
	_, err = dec.Token()
	return err
}
