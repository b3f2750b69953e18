package candidates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// FromFile reads candidates from a JSON or YAML document. Both a bare list and
// an object with a "candidates" key are accepted. Common alternative key names
// (candidate_id, resume, resumeURL) are normalised before decoding.
func FromFile(path string) (Candidates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse candidates file %q: %w", path, err)
	}

	var items []any
	switch v := doc.(type) {
	case nil:
		return Candidates{}, nil
	case []any:
		items = v
	case map[string]any:
		list, ok := v["candidates"].([]any)
		if !ok {
			return nil, fmt.Errorf("candidates file %q: expected a list under \"candidates\"", path)
		}
		items = list
	default:
		return nil, fmt.Errorf("candidates file %q: unexpected document type %T", path, doc)
	}

	return Decode(items)
}

var aliases = map[string]string{
	"candidate_id":        "id",
	"candidate_unique_id": "id",
	"resume":              "resume_url",
	"resumeurl":           "resume_url",
	"resume_link":         "resume_url",
	"full_name":           "name",
}

// Decode turns loosely typed items into candidates.
func Decode(items []any) (Candidates, error) {
	result := make(Candidates, 0, len(items))
	for i, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("candidate #%d: expected an object, got %T", i+1, item)
		}

		var candidate Candidate
		cfg := &mapstructure.DecoderConfig{
			Result:           &candidate,
			WeaklyTypedInput: true,
		}
		decoder, err := mapstructure.NewDecoder(cfg)
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(normalise(raw)); err != nil {
			return nil, fmt.Errorf("candidate #%d: %w", i+1, err)
		}

		if candidate.ID == "" {
			candidate.ID = strconv.Itoa(i + 1)
		}
		result = append(result, candidate)
	}

	return result, nil
}

func normalise(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		k := strings.ToLower(strings.TrimSpace(key))
		if alias, ok := aliases[k]; ok {
			if _, exists := raw[alias]; exists {
				continue
			}
			k = alias
		}
		out[k] = value
	}
	return out
}
