package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// format is picked from the path: ".yaml"/".yml" is YAML, anything else
// JSON. A trailing ".zst" adds zstd compression on top.
func format(path string) (isYAML, compressed bool) {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".zst") {
		compressed = true
		name = strings.TrimSuffix(name, ".zst")
	}
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml", compressed
}

// Write stores doc at path, creating the parent directory.
func Write(path string, doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Encode(f, doc, path); err != nil {
		return fmt.Errorf("write trace %s: %w", path, err)
	}
	return f.Close()
}

// Encode writes doc to w in the format implied by name.
func Encode(w io.Writer, doc *Document, name string) error {
	isYAML, compressed := format(name)

	var zw *zstd.Encoder
	if compressed {
		var err error
		zw, err = zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		w = zw
	}

	bw := bufio.NewWriter(w)
	if err := encodeDoc(bw, doc, isYAML); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if zw != nil {
		return zw.Close()
	}
	return nil
}

func encodeDoc(w io.Writer, doc *Document, isYAML bool) error {
	if isYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Read loads a document written by Write.
func Read(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	isYAML, compressed := format(path)
	var r io.Reader = bufio.NewReader(f)
	if compressed {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}

	var doc Document
	if isYAML {
		err = yaml.NewDecoder(r).Decode(&doc)
	} else {
		err = json.NewDecoder(r).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", path, err)
	}
	return &doc, nil
}
