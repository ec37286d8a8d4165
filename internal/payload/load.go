package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ErrEmptyDocument is returned for an empty file or an empty top-level array.
var ErrEmptyDocument = errors.New("payload document is empty")

// DecodeAll parses an export-json document. A top-level array (directory
// export) yields one payload per element, an object yields one payload.
func DecodeAll(data []byte) ([]*Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	var raws []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("decode payload array: %w", err)
		}
	} else {
		raws = []json.RawMessage{data}
	}
	if len(raws) == 0 {
		return nil, ErrEmptyDocument
	}

	out := make([]*Payload, 0, len(raws))
	for i, raw := range raws {
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode payload %d: %w", i, err)
		}
		p.Raw = append(json.RawMessage(nil), raw...)
		out = append(out, &p)
	}
	return out, nil
}

// Decode returns the first payload of the document.
func Decode(data []byte) (*Payload, error) {
	all, err := DecodeAll(data)
	if err != nil {
		return nil, err
	}
	return all[0], nil
}

// LoadFile reads and decodes every payload stored in path. Files ending in
// ".zst" are zstd-compressed exports.
func LoadFile(path string) ([]*Payload, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	all, err := DecodeAll(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return all, nil
}

func readFile(path string) ([]byte, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".zst") {
		return os.ReadFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("zstd decode %s: %w", path, err)
	}
	return data, nil
}

// Stem returns the card stem of a payload file ("dances/kolo.json" -> "kolo").
func Stem(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".json.zst", ".json"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
