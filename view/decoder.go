package view

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gorgonia.org/tensor"
)

// wireChannel is the JSON form of a Channel.
type wireChannel struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// wireSnapshot is the JSON form of a Snapshot.
type wireSnapshot struct {
	State    State         `json:"state"`
	Channels []wireChannel `json:"channels"`
}

// DecodeSnapshot decodes a simulator snapshot from either raw JSON or
// zlib-compressed JSON.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	// JSON may arrive with leading whitespace; zlib streams never start with it
	jsonBytes := bytes.TrimLeft(data, " \t\r\n")
	if len(jsonBytes) == 0 || jsonBytes[0] != '{' {
		var err error
		jsonBytes, err = inflateZlib(data)
		if err != nil {
			return nil, fmt.Errorf("unknown format: not JSON or zlib-compressed JSON")
		}
	}
	if len(jsonBytes) == 0 {
		return nil, fmt.Errorf("decoded JSON payload is empty")
	}
	return ParseSnapshotJSON(jsonBytes)
}

// ParseSnapshotJSON parses snapshot JSON and validates the state.
func ParseSnapshotJSON(data []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if err := w.State.Validate(); err != nil {
		return nil, fmt.Errorf("invalid state: %w", err)
	}

	snap := &Snapshot{State: w.State}
	for i, wc := range w.Channels {
		ch, err := wc.channel()
		if err != nil {
			return nil, fmt.Errorf("channel[%d]: %w", i, err)
		}
		snap.Channels = append(snap.Channels, ch)
	}
	return snap, nil
}

func (wc wireChannel) channel() (Channel, error) {
	if wc.Name == "" {
		return Channel{}, fmt.Errorf("name is required")
	}
	if len(wc.Shape) != 4 {
		return Channel{}, fmt.Errorf("%w: %q has shape %v, want 4 dimensions", ErrShapeMismatch, wc.Name, wc.Shape)
	}
	size := 1
	for _, s := range wc.Shape {
		if s <= 0 {
			return Channel{}, fmt.Errorf("%w: %q has non-positive dimension in %v", ErrShapeMismatch, wc.Name, wc.Shape)
		}
		size *= s
	}
	if size != len(wc.Data) {
		return Channel{}, fmt.Errorf("%w: %q has %d samples for shape %v", ErrShapeMismatch, wc.Name, len(wc.Data), wc.Shape)
	}
	t := tensor.New(tensor.WithShape(wc.Shape...), tensor.WithBacking(wc.Data))
	return Channel{Name: wc.Name, Data: t}, nil
}

// EncodeSnapshot is the inverse of ParseSnapshotJSON; the simulator side and
// tests use it to produce payloads.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	w := wireSnapshot{State: s.State}
	for _, ch := range s.Channels {
		data, err := denseFloats(ch.Data)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", ch.Name, err)
		}
		f32 := make([]float32, len(data))
		for i, v := range data {
			f32[i] = float32(v)
		}
		w.Channels = append(w.Channels, wireChannel{Name: ch.Name, Shape: []int(ch.Data.Shape()), Data: f32})
	}
	return json.Marshal(w)
}

// ParseSnapshotFile reads and decodes a snapshot file.
func ParseSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return DecodeSnapshot(data)
}

// inflateZlib decompresses zlib-compressed data.
func inflateZlib(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating zlib reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompressing zlib data: %w", err)
	}
	return decompressed, nil
}
