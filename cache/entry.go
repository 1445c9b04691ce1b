package cache

import (
	"bytes"
	"encoding/json"

	"github.com/jonwraymond/postinsights/insight"
)

// Entry is one persisted document.
type Entry struct {
	Category    string          `json:"category"`
	Authors     []string        `json:"authors"`
	Filters     map[string]any  `json:"filters"`
	GeneratedAt Timestamp       `json:"generated_at"`
	Insights    insight.Insight `json:"insights"`
}

// Info describes a stored document without its insight body.
type Info struct {
	Filename    string    `json:"filename"`
	Category    string    `json:"category"`
	Authors     []string  `json:"authors"`
	GeneratedAt Timestamp `json:"generated_at"`
}

// Summary reports store-wide diagnostics.
type Summary struct {
	TotalCached int    `json:"total_cached"`
	Location    string `json:"location"`
	Files       []Info `json:"files"`
}

// encodeEntry writes e as indented UTF-8 JSON. Non-ASCII and HTML characters
// are written literally.
func encodeEntry(e *Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
