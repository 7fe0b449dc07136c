package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yogakitties/yogakitties-bot/pkg/timeutil"
)

// DefaultSessions are created when no catalog file is given.
var DefaultSessions = []string{"Йога 17:30", "Йога 18:40"}

// DefaultClassDays are the class weekdays when no catalog file is given.
const DefaultClassDays = "mon,wed,fri"

// Catalog lists the sessions offered and the weekdays classes happen on.
//
// Example file:
//
//	sessions:
//	  - Йога 17:30
//	  - Йога 18:40
//	class_days: mon,wed,fri
type Catalog struct {
	Sessions  []string `yaml:"sessions"`
	ClassDays string   `yaml:"class_days"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	sessions := make([]string, len(DefaultSessions))
	copy(sessions, DefaultSessions)
	return &Catalog{Sessions: sessions, ClassDays: DefaultClassDays}
}

// LoadCatalog reads the catalog file. An empty path yields DefaultCatalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog. Unknown keys are
// rejected; a missing class_days falls back to DefaultClassDays.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	if c.ClassDays == "" {
		c.ClassDays = DefaultClassDays
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks session names and class days.
func (c *Catalog) Validate() error {
	if len(c.Sessions) == 0 {
		return errors.New("catalog: at least one session is required")
	}

	seen := make(map[string]struct{}, len(c.Sessions))
	for i, name := range c.Sessions {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("catalog: session #%d has an empty name", i+1)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("catalog: duplicate session %q", name)
		}
		seen[name] = struct{}{}
		c.Sessions[i] = name
	}

	if _, err := c.Weekdays(); err != nil {
		return fmt.Errorf("catalog: class_days: %w", err)
	}
	return nil
}

// Weekdays returns the parsed class days.
func (c *Catalog) Weekdays() ([]time.Weekday, error) {
	return timeutil.ParseWeekdays(c.ClassDays)
}
