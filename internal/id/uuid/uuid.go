// Package uuid provides the run ID generator.
package uuid

import guuid "github.com/google/uuid"

// Generator produces UUIDv4 run ids.
type Generator struct{}

// New constructs a Generator.
func New() Generator { return Generator{} }

// NewID returns a fresh UUID string.
func (Generator) NewID() (string, error) {
	id, err := guuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
