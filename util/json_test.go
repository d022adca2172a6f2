// util/json_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"slices"
	"strings"
	"testing"
)

func TestFindDuplicateJSONKeys(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected []DuplicateJSONKey
	}{
		{
			name:     "no duplicates",
			json:     `{"a": 1, "b": 2, "c": 3}`,
			expected: nil,
		},
		{
			name: "simple duplicate at root",
			json: `{"a": 1, "b": 2, "a": 3}`,
			expected: []DuplicateJSONKey{
				{Path: "", Key: "a"},
			},
		},
		{
			name: "duplicate in nested object",
			json: `{"stars": {"KJFK": {"LENDY5": 1, "LENDY5": 2}}}`,
			expected: []DuplicateJSONKey{
				{Path: "stars.KJFK", Key: "LENDY5"},
			},
		},
		{
			name: "multiple duplicates at different levels",
			json: `{"a": 1, "a": 2, "nested": {"b": 1, "b": 2}}`,
			expected: []DuplicateJSONKey{
				{Path: "", Key: "a"},
				{Path: "nested", Key: "b"},
			},
		},
		{
			name:     "same key in sibling objects",
			json:     `{"x": {"k": 1}, "y": {"k": 2}}`,
			expected: nil,
		},
		{
			name:     "array with objects no duplicates",
			json:     `{"items": [{"x": 1}, {"x": 2}]}`,
			expected: nil,
		},
		{
			name: "duplicate inside array element",
			json: `{"items": [{"x": 1, "x": 2}]}`,
			expected: []DuplicateJSONKey{
				{Path: "items", Key: "x"},
			},
		},
		{
			name:     "malformed",
			json:     `{"a": 1, "a"`,
			expected: []DuplicateJSONKey{{Path: "", Key: "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindDuplicateJSONKeys([]byte(tt.json))
			if !slices.Equal(result, tt.expected) {
				t.Errorf("FindDuplicateJSONKeys() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestUnmarshalJSONErrors(t *testing.T) {
	type db struct {
		Elevation float32 `json:"elevation"`
	}

	var d db
	if err := UnmarshalJSON([]byte(`{"elevation": 13}`), &d); err != nil || d.Elevation != 13 {
		t.Errorf("UnmarshalJSON() = %v, elevation %v", err, d.Elevation)
	}

	err := UnmarshalJSON([]byte("{\n\"elevation\": \"high\"\n}"), &d)
	if err == nil || !strings.HasPrefix(err.Error(), "line 2") {
		t.Errorf("type error = %v, want line 2 prefix", err)
	}

	err = UnmarshalJSON([]byte("{\n\n  \"elevation\": 13,,\n}"), &d)
	if err == nil || !strings.HasPrefix(err.Error(), "line 3") {
		t.Errorf("syntax error = %v, want line 3 prefix", err)
	}
}
