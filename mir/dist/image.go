// Package dist packages lowered programs as content-addressed images.
// An image carries the canonical CBOR encoding of a program, its SHA-256
// hash and the host builtins the program calls, so a receiver can verify
// the content and check the builtins against its policy before loading.
package dist

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/cmrt/mir"
)

// ImageVersion is the image format written by Pack.
const ImageVersion byte = 1

var (
	ErrHashMismatch = errors.New("image hash does not match its content")
	ErrVersion      = errors.New("unsupported image version")
)

// Image is the unit of program distribution.
type Image struct {
	Hash     [32]byte `cbor:"1,keyasint"`
	Name     string   `cbor:"2,keyasint"`
	Entry    string   `cbor:"3,keyasint,omitempty"`
	Program  []byte   `cbor:"4,keyasint"`           // canonical CBOR
	Builtins []string `cbor:"5,keyasint,omitempty"` // required host builtins
	Version  byte     `cbor:"6,keyasint"`
}

// ID returns the hex form of the image hash.
func (img *Image) ID() string {
	return hex.EncodeToString(img.Hash[:])
}

// Pack encodes p into an image.
func Pack(p *mir.Program) (*Image, error) {
	data, err := MarshalProgram(p)
	if err != nil {
		return nil, fmt.Errorf("dist: pack %s: %w", p.Name, err)
	}
	return &Image{
		Hash:     sha256.Sum256(data),
		Name:     p.Name,
		Entry:    p.Entry,
		Program:  data,
		Builtins: RequiredBuiltins(p),
		Version:  ImageVersion,
	}, nil
}

// Unpack verifies the image and decodes its program.
func Unpack(img *Image) (*mir.Program, error) {
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("dist: image %s version %d: %w", img.Name, img.Version, ErrVersion)
	}
	if sha256.Sum256(img.Program) != img.Hash {
		return nil, fmt.Errorf("dist: image %s: %w", img.Name, ErrHashMismatch)
	}
	return UnmarshalProgram(img.Program)
}

// RequiredBuiltins lists, sorted, the static callees of p that p does not
// define itself.
func RequiredBuiltins(p *mir.Program) []string {
	defined := map[string]bool{}
	for _, f := range p.Functions {
		defined[f.Name] = true
	}
	for _, f := range p.GenericFuncs {
		defined[f.Name] = true
	}

	seen := map[string]bool{}
	var out []string
	visit := func(fns []*mir.Function) {
		for _, f := range fns {
			for _, b := range f.Blocks {
				if b == nil || b.Term.Kind != mir.TermCall || b.Term.Method != "" {
					continue
				}
				name := b.Term.Func
				if defined[name] || seen[name] {
					continue
				}
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	visit(p.Functions)
	visit(p.GenericFuncs)
	sort.Strings(out)
	return out
}
