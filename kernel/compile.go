package kernel

import (
	"fmt"

	"github.com/gogpu/naga"
)

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile WGSL: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile WGSL: SPIR-V size %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// Compile returns the SPIR-V of the program named by d.
func Compile(d Descriptor) ([]uint32, error) {
	src, err := Source(d.Name)
	if err != nil {
		return nil, err
	}
	words, err := CompileSPIRV(src)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", d.Name, err)
	}
	return words, nil
}

// Validate compiles every program of r and returns the first failure.
func Validate(r *Registry) error {
	for _, d := range r.All() {
		if _, err := Compile(d); err != nil {
			return err
		}
	}
	return nil
}
