package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Difficulty labels a topic or algorithm
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// StringList is a []string stored as a JSON array in a text column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	*l = out
	return nil
}

// Algorithm is the smallest trackable unit within a topic
type Algorithm struct {
	TopicID          string     `db:"topic_id" json:"-"`
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Difficulty       Difficulty `db:"difficulty" json:"difficulty"`
	Points           int        `db:"points" json:"points"`
	IsGloballyLocked bool       `db:"is_globally_locked" json:"isGloballyLocked"`
	Position         int        `db:"position" json:"-"`
}

// Topic is a catalog entry holding an ordered list of algorithms
type Topic struct {
	ID               string      `db:"id" json:"id"`
	Name             string      `db:"name" json:"name"`
	Description      string      `db:"description" json:"description"`
	Order            int         `db:"position" json:"order"`
	Prerequisites    StringList  `db:"prerequisites" json:"prerequisites"`
	Difficulty       Difficulty  `db:"difficulty" json:"difficulty"`
	EstimatedMinutes int         `db:"estimated_minutes" json:"estimatedMinutes"`
	IsGloballyLocked bool        `db:"is_globally_locked" json:"isGloballyLocked"`
	IsActive         bool        `db:"is_active" json:"isActive"`
	CreatedAt        time.Time   `db:"created_at" json:"-"`
	UpdatedAt        time.Time   `db:"updated_at" json:"-"`
	Algorithms       []Algorithm `db:"-" json:"algorithms"`
}

// FindAlgorithm returns the algorithm definition with the given id
func (t *Topic) FindAlgorithm(id string) (*Algorithm, bool) {
	for i := range t.Algorithms {
		if t.Algorithms[i].ID == id {
			return &t.Algorithms[i], true
		}
	}
	return nil, false
}
