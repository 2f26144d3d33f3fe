package progress

import (
	"errors"
	"testing"
)

func TestCodec_RoundTrip(t *testing.T) {
	in := StudentProgress{
		LearnerID:     "u1",
		SubjectScores: map[string]float64{"Physics": 0.75},
		WeakTopics:    []string{"Optics"},
	}
	enc, err := encodeFields(in)
	if err != nil {
		t.Fatalf("encodeFields() error = %v", err)
	}
	if string(enc.Strong) != "[]" {
		t.Errorf("nil strong set encoded as %s, want []", enc.Strong)
	}

	var out StudentProgress
	if err := decodeFields(&out, enc); err != nil {
		t.Fatalf("decodeFields() error = %v", err)
	}
	if out.SubjectScores["Physics"] != 0.75 || len(out.WeakTopics) != 1 || out.StrongTopics == nil {
		t.Errorf("decoded = %+v", out)
	}
}

func TestCodec_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   encodedFields
	}{
		{"scores not an object", encodedFields{Scores: []byte(`[1,2]`)}},
		{"weak not a list", encodedFields{Weak: []byte(`"x"`)}},
		{"strong truncated", encodedFields{Strong: []byte(`["a"`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p StudentProgress
			if err := decodeFields(&p, tt.in); !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("decodeFields() error = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

func TestCodec_NullColumns(t *testing.T) {
	var p StudentProgress
	err := decodeFields(&p, encodedFields{Scores: []byte("null"), Weak: []byte("null"), Strong: nil})
	if err != nil {
		t.Fatalf("decodeFields() error = %v", err)
	}
	if p.SubjectScores == nil || p.WeakTopics == nil || p.StrongTopics == nil {
		t.Errorf("null columns should decode to empty collections: %+v", p)
	}
}
