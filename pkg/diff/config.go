package diff

import (
	"fmt"
	"runtime"
	"strings"
)

// Mode selects when local Jacobians are built
type Mode int

const (
	// ModeEager builds the Jacobian while the interaction is computed
	ModeEager Mode = iota
	// ModeRecorded records the inputs and builds on the first derivative query
	ModeRecorded
)

func (m Mode) String() string {
	switch m {
	case ModeEager:
		return "eager"
	case ModeRecorded:
		return "recorded"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "eager" or "recorded"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eager", "":
		return ModeEager, nil
	case "recorded":
		return ModeRecorded, nil
	default:
		return ModeEager, fmt.Errorf("unknown evaluation mode %q", s)
	}
}

// Config is passed explicitly into every batch evaluation
type Config struct {
	Mode      Mode
	Workers   int  // concurrent chunks; <= 0 means runtime.NumCPU()
	ChunkSize int  // rays per chunk; <= 0 means 256
	Coherent  bool // reorder rays into coherent chunks before tracing
}

// DefaultConfig returns eager evaluation over all CPUs
func DefaultConfig() Config {
	return Config{
		Mode:      ModeEager,
		Workers:   runtime.NumCPU(),
		ChunkSize: 256,
	}
}

// Normalized fills in defaults for non-positive fields
func (c Config) Normalized() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 256
	}
	return c
}
