package dist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chazu/cmrt/mir"
)

// ErrFormat is returned for a program file with an unknown extension.
var ErrFormat = errors.New("unknown program file format")

// DecodeYAML reads a program in YAML form. Unknown keys are rejected.
func DecodeYAML(r io.Reader) (*mir.Program, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p mir.Program
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("dist: decode yaml: %w", err)
	}
	return &p, nil
}

// EncodeYAML writes p in the YAML mapping form.
func EncodeYAML(w io.Writer, p *mir.Program) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("dist: encode yaml: %w", err)
	}
	return enc.Close()
}

// LoadFile reads a program from path. ".yaml" and ".yml" files hold the
// YAML form, ".mir" files a CBOR program, ".img" files a packed Image,
// which is verified before its program is returned.
func LoadFile(path string) (*mir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(bytes.NewReader(data))
	case ".mir":
		return UnmarshalProgram(data)
	case ".img":
		img, err := UnmarshalImage(data)
		if err != nil {
			return nil, err
		}
		return Unpack(img)
	}
	return nil, fmt.Errorf("dist: %s: %w", path, ErrFormat)
}

// SaveFile writes p to path in the format chosen by its extension, as
// LoadFile reads it.
func SaveFile(path string, p *mir.Program) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := EncodeYAML(&buf, p); err != nil {
			return err
		}
	case ".mir":
		data, err := MarshalProgram(p)
		if err != nil {
			return err
		}
		buf.Write(data)
	case ".img":
		img, err := Pack(p)
		if err != nil {
			return err
		}
		data, err := MarshalImage(img)
		if err != nil {
			return err
		}
		buf.Write(data)
	default:
		return fmt.Errorf("dist: %s: %w", path, ErrFormat)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
