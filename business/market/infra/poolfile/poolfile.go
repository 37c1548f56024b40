// Package poolfile reads the pool universe from a YAML file.
package poolfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fd1az/pool-sniper/internal/config"
)

// File is the on-disk shape:
//
//	tokens:
//	  - {symbol: RAY, mint: 4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R, decimals: 6}
//	pools:
//	  - {address: <pool account>, token_a: SOL, token_b: USDC}
type File struct {
	Tokens []config.TokenConfig `yaml:"tokens"`
	Pools  []config.PoolConfig  `yaml:"pools"`
}

// Load reads and parses path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read pool file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a pool file. Unknown keys are rejected.
func Parse(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parse pool file: %w", err)
	}
	return f, nil
}
