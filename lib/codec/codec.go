// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Format names a record encoding.
type Format string

const (
	// JSON is indented, human-readable JSON.
	JSON Format = "json"
	// CBOR is deterministic CBOR.
	CBOR Format = "cbor"
)

// ParseFormat validates a format name. The empty string selects JSON.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case "", JSON:
		return JSON, nil
	case CBOR:
		return CBOR, nil
	default:
		return "", fmt.Errorf("unknown record format %q (want %q or %q)", name, JSON, CBOR)
	}
}

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding. Times encode as RFC 3339 strings with nanoseconds so that
// both formats carry the same precision.
var encMode cbor.EncMode

// decMode accepts standard CBOR. Unknown fields are ignored for
// forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v in the given format.
func (f Format) Marshal(v any) ([]byte, error) {
	switch f {
	case CBOR:
		return encMode.Marshal(v)
	case JSON, "":
		var buffer bytes.Buffer
		encoder := json.NewEncoder(&buffer)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(v); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown record format %q", string(f))
	}
}

// Unmarshal decodes data in the given format into v.
func (f Format) Unmarshal(data []byte, v any) error {
	switch f {
	case CBOR:
		return decMode.Unmarshal(data, v)
	case JSON, "":
		return json.Unmarshal(data, v)
	default:
		return fmt.Errorf("unknown record format %q", string(f))
	}
}

// Timestamp normalizes t for encoding: UTC, so that the JSON and CBOR
// text representations do not depend on the host time zone.
func Timestamp(t time.Time) time.Time {
	return t.UTC()
}
