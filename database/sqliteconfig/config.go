// Package sqliteconfig provides type-safe configuration and connection URL
// generation for the modernc.org/sqlite driver.
package sqliteconfig

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by config validation.
var (
	ErrPathEmpty           = errors.New("path cannot be empty")
	ErrBusyTimeoutNegative = errors.New("busy_timeout must be >= 0")
	ErrInvalidJournalMode  = errors.New("invalid journal_mode")
	ErrInvalidSynchronous  = errors.New("invalid synchronous")
)

// DefaultBusyTimeout is the default busy timeout in milliseconds.
const DefaultBusyTimeout = 10000

// JournalMode represents SQLite journal_mode pragma values.
type JournalMode string

const (
	// JournalModeWAL enables Write-Ahead Logging.
	JournalModeWAL JournalMode = "WAL"
	// JournalModeDelete uses traditional rollback journaling.
	JournalModeDelete JournalMode = "DELETE"
	// JournalModeMemory keeps the journal in memory, used for tests.
	JournalModeMemory JournalMode = "MEMORY"
)

// IsValid returns true if the JournalMode is valid.
func (j JournalMode) IsValid() bool {
	switch j {
	case JournalModeWAL, JournalModeDelete, JournalModeMemory:
		return true
	default:
		return false
	}
}

// Synchronous represents SQLite synchronous pragma values.
type Synchronous string

const (
	// SynchronousNormal provides balanced performance and safety.
	SynchronousNormal Synchronous = "NORMAL"
	// SynchronousFull provides maximum durability with performance cost.
	SynchronousFull Synchronous = "FULL"
)

// IsValid returns true if the Synchronous is valid.
func (s Synchronous) IsValid() bool {
	switch s {
	case SynchronousNormal, SynchronousFull:
		return true
	default:
		return false
	}
}

// Config holds the SQLite pragmas applied at connection time.
type Config struct {
	Path        string
	BusyTimeout int
	JournalMode JournalMode
	Synchronous Synchronous
	ForeignKeys bool
}

// Default returns the production configuration for the given path.
func Default(path string) *Config {
	return &Config{
		Path:        path,
		BusyTimeout: DefaultBusyTimeout,
		JournalMode: JournalModeWAL,
		Synchronous: SynchronousNormal,
		ForeignKeys: true,
	}
}

// Memory returns an in-memory configuration, used for tests.
func Memory() *Config {
	return &Config{
		Path:        ":memory:",
		BusyTimeout: DefaultBusyTimeout,
		JournalMode: JournalModeMemory,
		Synchronous: SynchronousNormal,
		ForeignKeys: true,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Path == "" {
		return ErrPathEmpty
	}
	if c.BusyTimeout < 0 {
		return ErrBusyTimeoutNegative
	}
	if !c.JournalMode.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidJournalMode, c.JournalMode)
	}
	if !c.Synchronous.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidSynchronous, c.Synchronous)
	}
	return nil
}

// ToURL builds the connection string for the modernc.org/sqlite driver.
func (c *Config) ToURL() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	var pragmas []string
	if c.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout=%d", c.BusyTimeout))
	}
	pragmas = append(pragmas, fmt.Sprintf("journal_mode=%s", c.JournalMode))
	pragmas = append(pragmas, fmt.Sprintf("synchronous=%s", c.Synchronous))
	if c.ForeignKeys {
		pragmas = append(pragmas, "foreign_keys=ON")
	}

	var baseURL string
	if c.Path == ":memory:" {
		baseURL = ":memory:"
	} else {
		baseURL = "file:" + c.Path
	}

	queryParts := make([]string, 0, len(pragmas))
	for _, pragma := range pragmas {
		queryParts = append(queryParts, "_pragma="+pragma)
	}

	return baseURL + "?" + strings.Join(queryParts, "&"), nil
}
