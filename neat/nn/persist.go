package nn

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// Encode writes the network as a gzip-compressed gob stream.
func (net *FeedForwardNetwork) Encode(w io.Writer) error {
	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(net); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode network: %w", err)
	}
	return gz.Close()
}

// Decode reads a network written by Encode and resolves its activation and
// aggregation functions by name. Custom activations must be registered
// before decoding.
func Decode(r io.Reader) (*FeedForwardNetwork, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open network stream: %w", err)
	}
	defer gz.Close()

	var net FeedForwardNetwork
	if err := gob.NewDecoder(gz).Decode(&net); err != nil {
		return nil, fmt.Errorf("failed to decode network: %w", err)
	}
	for i := range net.NodeEvals {
		if err := net.NodeEvals[i].resolve(); err != nil {
			return nil, err
		}
	}
	return &net, nil
}

// Save writes the network to path.
func (net *FeedForwardNetwork) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create network file '%s': %w", path, err)
	}
	defer f.Close()
	if err := net.Encode(f); err != nil {
		return err
	}
	return f.Close()
}

// Load reads a network saved with Save.
func Load(path string) (*FeedForwardNetwork, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open network file '%s': %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}
