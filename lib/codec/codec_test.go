// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Alpha string    `json:"alpha"`
	Count int       `json:"count"`
	When  time.Time `json:"when"`
}

var sampleValue = sample{
	Alpha: "a<b>&c",
	Count: 42,
	When:  time.Date(2025, 1, 1, 0, 0, 0, 123456789, time.UTC),
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"", JSON, false},
		{"json", JSON, false},
		{"cbor", CBOR, false},
		{"yaml", "", true},
	}
	for _, test := range tests {
		got, err := ParseFormat(test.name)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", test.name, err, test.wantErr)
			continue
		}
		if got != test.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestJSONLayout(t *testing.T) {
	data, err := JSON.Marshal(sampleValue)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := "{\n  \"alpha\": \"a<b>&c\",\n  \"count\": 42,\n  \"when\": \"2025-01-01T00:00:00.123456789Z\"\n}\n"
	if string(data) != want {
		t.Errorf("JSON output:\n%s\nwant:\n%s", data, want)
	}
}

func TestFormatsPreserveValue(t *testing.T) {
	for _, format := range []Format{JSON, CBOR} {
		t.Run(string(format), func(t *testing.T) {
			data, err := format.Marshal(sampleValue)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var decoded sample
			if err := format.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if decoded.Alpha != sampleValue.Alpha || decoded.Count != sampleValue.Count || !decoded.When.Equal(sampleValue.When) {
				t.Errorf("decoded %+v, want %+v", decoded, sampleValue)
			}
		})
	}
}

func TestCBORDeterministic(t *testing.T) {
	first, err := CBOR.Marshal(sampleValue)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := CBOR.Marshal(sampleValue)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("CBOR encoding is not deterministic")
		}
	}
}

func TestCBORSortsMapKeys(t *testing.T) {
	data, err := CBOR.Marshal(map[string]int{"ccc": 1, "aaa": 2, "bbb": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	a := bytes.Index(data, []byte("aaa"))
	b := bytes.Index(data, []byte("bbb"))
	c := bytes.Index(data, []byte("ccc"))
	if !(a < b && b < c) {
		t.Errorf("keys not in sorted order: aaa@%d bbb@%d ccc@%d", a, b, c)
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := Format("xml").Marshal(sampleValue); err == nil || !strings.Contains(err.Error(), "xml") {
		t.Errorf("Marshal with unknown format: err = %v", err)
	}
	if err := Format("xml").Unmarshal(nil, &sample{}); err == nil {
		t.Error("Unmarshal with unknown format: expected error")
	}
}

func TestTimestampIsUTC(t *testing.T) {
	local := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	if got := Timestamp(local); got.Location() != time.UTC || !got.Equal(local) {
		t.Errorf("Timestamp(%v) = %v", local, got)
	}
}
