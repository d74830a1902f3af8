package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jakechorley/colony-allocator/pkg/db"
)

// Version is the snapshot format written by Encode
const Version = 1

// ErrInvalidSnapshot is returned for snapshots that fail schema or reference checks
var ErrInvalidSnapshot = errors.New("invalid world snapshot")

//go:embed world.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("world.schema.json", schemaJSON)

// World is the file format of an exported colony: every planet and building
type World struct {
	Version    int           `json:"version"`
	ExportedAt time.Time     `json:"exportedAt"`
	Planets    []db.Planet   `json:"planets"`
	Buildings  []db.Building `json:"buildings"`
}

// IsCompressed reports whether path names a zstd-compressed snapshot
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// Read loads a snapshot from path, decompressing .zst files
func Read(path string) (*World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if IsCompressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	return Decode(r)
}

// Write stores a snapshot at path, compressing when path ends in .zst
func Write(path string, world *World) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer f.Close()

	if !IsCompressed(path) {
		return Encode(f, world)
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := Encode(enc, world); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	return nil
}

// Decode reads and validates a JSON snapshot
func Decode(r io.Reader) (*World, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	var world World
	if err := json.Unmarshal(data, &world); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if err := checkReferences(&world); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	return &world, nil
}

// Encode writes world as indented JSON, stamping the version
func Encode(w io.Writer, world *World) error {
	world.Version = Version

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(world); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// checkReferences rejects duplicate IDs and buildings on unknown planets
func checkReferences(world *World) error {
	planets := make(map[string]bool, len(world.Planets))
	for _, p := range world.Planets {
		if planets[p.ID] {
			return fmt.Errorf("duplicate planet id %q", p.ID)
		}
		planets[p.ID] = true
	}

	buildings := make(map[string]bool, len(world.Buildings))
	for _, b := range world.Buildings {
		if buildings[b.ID] {
			return fmt.Errorf("duplicate building id %q", b.ID)
		}
		buildings[b.ID] = true

		if !planets[b.PlanetID] {
			return fmt.Errorf("building %q is on unknown planet %q", b.ID, b.PlanetID)
		}
	}

	return nil
}
