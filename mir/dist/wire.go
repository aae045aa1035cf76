package dist

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/cmrt/mir"
)

// cborEncMode uses canonical mode so that equal programs encode to equal
// bytes and therefore hash equally.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalProgram serializes a program to canonical CBOR bytes.
func MarshalProgram(p *mir.Program) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

// UnmarshalProgram deserializes a program from CBOR bytes.
func UnmarshalProgram(data []byte) (*mir.Program, error) {
	var p mir.Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("dist: unmarshal program: %w", err)
	}
	return &p, nil
}

// MarshalImage serializes an Image to CBOR bytes.
func MarshalImage(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// UnmarshalImage deserializes an Image from CBOR bytes.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("dist: unmarshal image: %w", err)
	}
	return &img, nil
}
