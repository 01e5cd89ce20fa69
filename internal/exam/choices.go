package exam

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Choices is either absent or an ordered list of option strings.
// It always serialises as a JSON array or null.
type Choices struct {
	Options []string
	Valid   bool
}

func NewChoices(options ...string) Choices {
	if options == nil {
		options = []string{}
	}
	return Choices{Options: options, Valid: true}
}

func (c Choices) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	if c.Options == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Options)
}

// UnmarshalJSON accepts null, an array of strings, or a string holding one.
func (c *Choices) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = Choices{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return c.decodeText([]byte(s))
	}
	var opts []string
	if err := json.Unmarshal(b, &opts); err != nil {
		return fmt.Errorf("choices: %w", err)
	}
	*c = NewChoices(opts...)
	return nil
}

// Scan decodes the stored column. Textual values are parsed as JSON; values
// that are already structured pass through.
func (c *Choices) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = Choices{}
		return nil
	case string:
		return c.decodeText([]byte(v))
	case []byte:
		return c.decodeText(v)
	case []string:
		*c = NewChoices(append([]string(nil), v...)...)
		return nil
	default:
		return fmt.Errorf("choices: unsupported column type %T", src)
	}
}

func (c Choices) Value() (driver.Value, error) {
	if !c.Valid {
		return nil, nil
	}
	b, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Choices) decodeText(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = Choices{}
		return nil
	}
	if b[0] == '"' {
		// stored twice-encoded by older writers
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("choices: %w", err)
		}
		if s = strings.TrimSpace(s); s != "" && s[0] == '"' {
			return fmt.Errorf("choices: nested string")
		}
		return c.decodeText([]byte(s))
	}
	var opts []string
	if err := json.Unmarshal(b, &opts); err != nil {
		return fmt.Errorf("choices: %w", err)
	}
	*c = NewChoices(opts...)
	return nil
}

// Contains reports whether s is one of the options.
func (c Choices) Contains(s string) bool {
	for _, o := range c.Options {
		if o == s {
			return true
		}
	}
	return false
}
