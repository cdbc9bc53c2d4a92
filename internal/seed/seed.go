// Package seed loads question banks from YAML and ships a default bank.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/skillbadge/assessment-service/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

//go:embed questions.yaml
var defaultBank []byte

type bankFile struct {
	Skills []skillSection `yaml:"skills"`
}

type skillSection struct {
	Skill     string          `yaml:"skill"`
	Questions []questionEntry `yaml:"questions"`
}

type questionEntry struct {
	Text    string   `yaml:"text"`
	Options []string `yaml:"options"`
	Correct int      `yaml:"correct"`
}

// Default returns the embedded question bank
func Default() ([]*models.Question, error) {
	return Parse(strings.NewReader(string(defaultBank)))
}

// LoadFile reads a question bank from disk
func LoadFile(path string) ([]*models.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open question bank: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a question bank. Structural checks only; answer ranges are
// left to the question validator on import.
func Parse(r io.Reader) ([]*models.Question, error) {
	var bank bankFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&bank); err != nil {
		return nil, fmt.Errorf("failed to decode question bank: %w", err)
	}

	var questions []*models.Question
	for _, section := range bank.Skills {
		skill, ok := models.CanonicalSkill(section.Skill)
		if !ok {
			return nil, fmt.Errorf("unknown skill %q in question bank", section.Skill)
		}
		for i, entry := range section.Questions {
			options, err := json.Marshal(entry.Options)
			if err != nil {
				return nil, fmt.Errorf("%s question %d: %w", skill, i+1, err)
			}
			questions = append(questions, &models.Question{
				Skill:         skill,
				QuestionText:  strings.TrimSpace(entry.Text),
				Options:       datatypes.JSON(options),
				CorrectAnswer: entry.Correct,
			})
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}
	return questions, nil
}
