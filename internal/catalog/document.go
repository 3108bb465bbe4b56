// Package catalog loads and validates topic catalog seed files.
package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"learnstack/internal/models"
)

// Document is a full catalog seed
type Document struct {
	Topics []TopicSpec `yaml:"topics" json:"topics"`
}

type TopicSpec struct {
	ID               string          `yaml:"id" json:"id"`
	Name             string          `yaml:"name" json:"name"`
	Description      string          `yaml:"description,omitempty" json:"description,omitempty"`
	Order            int             `yaml:"order" json:"order"`
	Prerequisites    []string        `yaml:"prerequisites,omitempty" json:"prerequisites"`
	Difficulty       string          `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	EstimatedMinutes int             `yaml:"estimatedMinutes,omitempty" json:"estimatedMinutes"`
	Locked           bool            `yaml:"locked,omitempty" json:"locked"`
	Inactive         bool            `yaml:"inactive,omitempty" json:"inactive"`
	Algorithms       []AlgorithmSpec `yaml:"algorithms" json:"algorithms"`
}

type AlgorithmSpec struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Difficulty string `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	Points     int    `yaml:"points" json:"points"`
	Locked     bool   `yaml:"locked,omitempty" json:"locked"`
}

// LoadYAML decodes and validates a YAML seed document
func LoadYAML(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog yaml: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile picks the loader from the file extension (.yaml, .yml or .xlsx)
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".xlsx":
		return LoadXLSX(f)
	default:
		return nil, fmt.Errorf("unsupported catalog file type %q", filepath.Ext(path))
	}
}

// ModelTopics converts the document into catalog models
func (d *Document) ModelTopics() []models.Topic {
	topics := make([]models.Topic, 0, len(d.Topics))
	for _, ts := range d.Topics {
		t := models.Topic{
			ID:               ts.ID,
			Name:             ts.Name,
			Description:      ts.Description,
			Order:            ts.Order,
			Prerequisites:    models.StringList(append([]string{}, ts.Prerequisites...)),
			Difficulty:       difficultyOr(ts.Difficulty),
			EstimatedMinutes: ts.EstimatedMinutes,
			IsGloballyLocked: ts.Locked,
			IsActive:         !ts.Inactive,
		}
		for i, as := range ts.Algorithms {
			t.Algorithms = append(t.Algorithms, models.Algorithm{
				TopicID:          ts.ID,
				ID:               as.ID,
				Name:             as.Name,
				Difficulty:       difficultyOr(as.Difficulty),
				Points:           as.Points,
				IsGloballyLocked: as.Locked,
				Position:         i,
			})
		}
		topics = append(topics, t)
	}
	return topics
}

// FromTopics builds a document from catalog models, used for exports
func FromTopics(topics []models.Topic) *Document {
	doc := &Document{}
	for _, t := range topics {
		ts := TopicSpec{
			ID:               t.ID,
			Name:             t.Name,
			Description:      t.Description,
			Order:            t.Order,
			Prerequisites:    append([]string{}, t.Prerequisites...),
			Difficulty:       string(t.Difficulty),
			EstimatedMinutes: t.EstimatedMinutes,
			Locked:           t.IsGloballyLocked,
			Inactive:         !t.IsActive,
		}
		for _, a := range t.Algorithms {
			ts.Algorithms = append(ts.Algorithms, AlgorithmSpec{
				ID:         a.ID,
				Name:       a.Name,
				Difficulty: string(a.Difficulty),
				Points:     a.Points,
				Locked:     a.IsGloballyLocked,
			})
		}
		doc.Topics = append(doc.Topics, ts)
	}
	return doc
}

func difficultyOr(d string) models.Difficulty {
	if d == "" {
		return models.DifficultyBeginner
	}
	return models.Difficulty(d)
}
