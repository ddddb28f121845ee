package models

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// Sentinel errors returned by this package.
var (
	ErrInvalidModels = errors.New("invalid models")
	ErrSafelist      = errors.New("safelist")
	ErrCoverage      = errors.New("coverage threshold not met")
)

// Model is one data model as described by the introspection step.
type Model struct {
	ID        string   `validate:"required" yaml:"id"`
	Docstring string   `yaml:"docstring"`
	File      string   `yaml:"file"`
	Ancestors []string `yaml:"ancestors"`
	// Line is the line of File where the model's source starts.
	Line  int  `validate:"gte=0" yaml:"line"`
	Local bool `yaml:"local"`
}

var modelValidator = validator.New()

// ParseModels decodes a YAML sequence of models and checks that IDs are
// present and unique. Models are returned sorted by ID.
func ParseModels(data []byte) ([]Model, error) {
	var models []Model

	err := yaml.Unmarshal(data, &models)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModels, err)
	}

	for i := range models {
		err := modelValidator.Struct(&models[i])
		if err != nil {
			return nil, fmt.Errorf("%w: model %d: %w", ErrInvalidModels, i, err)
		}
	}

	slices.SortFunc(models, func(a, b Model) int {
		return strings.Compare(a.ID, b.ID)
	})

	for i := 1; i < len(models); i++ {
		if models[i].ID == models[i-1].ID {
			return nil, fmt.Errorf("%w: model %s is listed more than once", ErrInvalidModels, models[i].ID)
		}
	}

	return models, nil
}

// LoadModels reads and parses a models file.
func LoadModels(path string) ([]Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModels, err)
	}

	models, err := ParseModels(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return models, nil
}

// ListLocal returns the IDs of the local models, sorted.
func ListLocal(models []Model) []string {
	var ids []string

	for _, m := range models {
		if m.Local {
			ids = append(ids, m.ID)
		}
	}

	slices.Sort(ids)

	return ids
}
