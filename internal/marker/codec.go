package marker

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Payload is a decoded annotation document.
type Payload struct {
	Version int64
	Markers []Marker
}

// Decode parses an annotation payload of the form
//
//	{"version": 3, "markers": [{"id": "c1", "line": 12, "color": "red", "kind": "comment", "summary": "..."}]}
//
// Malformed records are skipped and reported in the returned slice. A
// payload that is not JSON at all yields ErrInvalidPayload.
func Decode(data []byte) (Payload, []error, error) {
	if !gjson.ValidBytes(data) {
		return Payload{}, nil, ErrInvalidPayload
	}

	var (
		out  Payload
		errs []error
	)
	out.Version = gjson.GetBytes(data, "version").Int()

	index := 0
	gjson.GetBytes(data, "markers").ForEach(func(_, rec gjson.Result) bool {
		m, err := decodeRecord(rec)
		if err != nil {
			errs = append(errs, &RecordError{Index: index, ID: rec.Get("id").String(), Err: err})
		} else {
			out.Markers = append(out.Markers, m)
		}
		index++
		return true
	})
	return out, errs, nil
}

func decodeRecord(rec gjson.Result) (Marker, error) {
	if !rec.IsObject() {
		return Marker{}, fmt.Errorf("record is %s, not an object", rec.Type)
	}

	id := rec.Get("id")
	if id.String() == "" {
		return Marker{}, ErrMissingID
	}
	line := rec.Get("line")
	if line.Type != gjson.Number || line.Int() < 0 {
		return Marker{}, ErrInvalidLine
	}
	color, err := ParseColor(rec.Get("color").String())
	if err != nil {
		return Marker{}, err
	}
	kind, err := ParseKind(rec.Get("kind").String())
	if err != nil {
		return Marker{}, err
	}

	return Marker{
		ID:         id.String(),
		AnchorLine: int(line.Int()),
		Color:      color,
		Kind:       kind,
		Summary:    rec.Get("summary").String(),
	}, nil
}

// Encode writes markers in the format Decode reads.
func Encode(p Payload) ([]byte, error) {
	data, err := sjson.SetBytes([]byte(`{}`), "version", p.Version)
	if err != nil {
		return nil, err
	}
	data, err = sjson.SetRawBytes(data, "markers", []byte(`[]`))
	if err != nil {
		return nil, err
	}
	for _, m := range p.Markers {
		rec := []byte(`{}`)
		fields := []struct {
			key   string
			value any
		}{
			{"id", m.ID},
			{"line", m.AnchorLine},
			{"color", m.Color.String()},
			{"kind", m.Kind.String()},
			{"summary", m.Summary},
		}
		for _, f := range fields {
			rec, err = sjson.SetBytes(rec, f.key, f.value)
			if err != nil {
				return nil, fmt.Errorf("encode marker %s: %w", m.ID, err)
			}
		}
		data, err = sjson.SetRawBytes(data, "markers.-1", rec)
		if err != nil {
			return nil, fmt.Errorf("encode marker %s: %w", m.ID, err)
		}
	}
	return data, nil
}
