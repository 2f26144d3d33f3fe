package progress

import (
	"encoding/json"
	"fmt"
)

// encodedFields is the serialized form of the collection fields of a
// StudentProgress, one JSON document per column.
type encodedFields struct {
	Scores []byte
	Weak   []byte
	Strong []byte
}

func encodeFields(p StudentProgress) (encodedFields, error) {
	scores := p.SubjectScores
	if scores == nil {
		scores = map[string]float64{}
	}
	weak := p.WeakTopics
	if weak == nil {
		weak = []string{}
	}
	strong := p.StrongTopics
	if strong == nil {
		strong = []string{}
	}

	var out encodedFields
	var err error
	if out.Scores, err = json.Marshal(scores); err != nil {
		return encodedFields{}, fmt.Errorf("encode subject scores: %w", err)
	}
	if out.Weak, err = json.Marshal(weak); err != nil {
		return encodedFields{}, fmt.Errorf("encode weak topics: %w", err)
	}
	if out.Strong, err = json.Marshal(strong); err != nil {
		return encodedFields{}, fmt.Errorf("encode strong topics: %w", err)
	}
	return out, nil
}

// decodeFields fills the collection fields of p. Any decoding failure is
// reported as ErrMalformedRecord.
func decodeFields(p *StudentProgress, in encodedFields) error {
	p.SubjectScores = map[string]float64{}
	p.WeakTopics = []string{}
	p.StrongTopics = []string{}

	if err := decodeColumn(in.Scores, &p.SubjectScores); err != nil {
		return fmt.Errorf("%w: subject_scores: %v", ErrMalformedRecord, err)
	}
	if err := decodeColumn(in.Weak, &p.WeakTopics); err != nil {
		return fmt.Errorf("%w: weak_topics: %v", ErrMalformedRecord, err)
	}
	if err := decodeColumn(in.Strong, &p.StrongTopics); err != nil {
		return fmt.Errorf("%w: strong_topics: %v", ErrMalformedRecord, err)
	}

	// JSON null decodes into a nil map or slice.
	if p.SubjectScores == nil {
		p.SubjectScores = map[string]float64{}
	}
	if p.WeakTopics == nil {
		p.WeakTopics = []string{}
	}
	if p.StrongTopics == nil {
		p.StrongTopics = []string{}
	}
	return nil
}

func decodeColumn(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
