package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Question struct {
	ID            string         `json:"id" gorm:"primaryKey;type:uuid"`
	Skill         string         `json:"skill" gorm:"not null;size:100;index"`
	QuestionText  string         `json:"question_text" gorm:"not null;type:text"`
	Options       datatypes.JSON `json:"options" gorm:"type:jsonb;not null"`
	CorrectAnswer int            `json:"-" gorm:"not null"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// OptionList decodes the ordered answer options
func (q *Question) OptionList() ([]string, error) {
	var options []string
	if len(q.Options) == 0 {
		return options, nil
	}
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// Skills is the catalogue of assessable life skills
var Skills = []string{
	"Communication",
	"Problem Solving",
	"Teamwork",
	"Critical Thinking",
	"Time Management",
}

func IsKnownSkill(skill string) bool {
	_, ok := CanonicalSkill(skill)
	return ok
}

// CanonicalSkill returns the catalogue spelling of skill
func CanonicalSkill(skill string) (string, bool) {
	for _, s := range Skills {
		if strings.EqualFold(s, strings.TrimSpace(skill)) {
			return s, true
		}
	}
	return strings.TrimSpace(skill), false
}
