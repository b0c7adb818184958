// Package source loads the documents a bootstrap run indexes.
package source

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/davidschrooten/index-bootstrap/internal/document"
)

// LoadFile reads a JSON object mapping document ids to documents.
func LoadFile(path string) (*document.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer f.Close()

	docs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return docs, nil
}

// Decode reads a JSON object of id -> document from r. Numbers are kept as
// json.Number so that ids and counts survive unchanged. A document without
// an "id" field takes its key. The collection keeps the order of the keys in
// the input.
func Decode(r io.Reader) (*document.Collection, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	docs := document.NewCollection()
	for dec.More() {
		token, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to decode documents: %w", err)
		}
		id, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("failed to decode documents: unexpected key %v", token)
		}

		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		if m == nil {
			return nil, fmt.Errorf("document %s is null", id)
		}
		if _, ok := m["id"]; !ok {
			m["id"] = id
		}
		docs.Add(id, document.FromMap(m))
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return docs, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	token, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to decode documents: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != want {
		return fmt.Errorf("failed to decode documents: expected %v, got %v", want, token)
	}
	return nil
}
