package pipeline

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

const (
	artifactFormat  = "estatefit-pipeline"
	artifactVersion = 1
)

// ErrArtifactVersion is returned when a model file was written by an
// incompatible version or is not a pipeline artifact at all.
var ErrArtifactVersion = errors.New("unsupported model artifact")

type artifactHeader struct {
	Format  string
	Version int
}

// MetaPath is the JSON sidecar written next to a model artifact.
func MetaPath(path string) string { return path + ".meta.json" }

// Save writes the fitted pipeline as gzip-compressed gob plus a metadata sidecar.
func (p *Pipeline) Save(path string) error {
	if !p.Fitted() {
		return errors.New("pipeline: cannot save an unfitted pipeline")
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(zw)
	if err := enc.Encode(artifactHeader{Format: artifactFormat, Version: artifactVersion}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode pipeline: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress pipeline: %w", err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return err
	}
	meta, err := utils.PrettyJSON(p.Meta)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(MetaPath(path), meta)
}

// Load reads an artifact written by Save.
func Load(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("model not found at %s (run 'estatefit train' first): %w", path, err)
		}
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactVersion, path, err)
	}
	defer zr.Close()
	dec := gob.NewDecoder(zr)
	var h artifactHeader
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactVersion, path, err)
	}
	if h.Format != artifactFormat || h.Version != artifactVersion {
		return nil, fmt.Errorf("%w: %s has format %q version %d, want %q version %d",
			ErrArtifactVersion, path, h.Format, h.Version, artifactFormat, artifactVersion)
	}
	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}
	if !p.Fitted() {
		return nil, fmt.Errorf("%w: %s holds an unfitted pipeline", ErrArtifactVersion, path)
	}
	p.SetLogger(nil)
	return &p, nil
}

// LoadMeta reads only the JSON sidecar.
func LoadMeta(path string) (*Meta, error) {
	b, err := os.ReadFile(MetaPath(path))
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse model metadata: %w", err)
	}
	return &m, nil
}
