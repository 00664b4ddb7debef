package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"qa-live-service/internal/domain"
)

// Content is the authoring hierarchy as kept in a YAML content file:
// entities contain groups, groups contain sessions and a roster, sessions contain questions.
type Content struct {
	Entities []ContentEntity `yaml:"entities"`
}

type ContentEntity struct {
	ID     string         `yaml:"id"`
	Name   string         `yaml:"name"`
	Groups []ContentGroup `yaml:"groups"`
}

type ContentGroup struct {
	ID           string               `yaml:"id"`
	Name         string               `yaml:"name"`
	Participants []domain.Participant `yaml:"participants"`
	Sessions     []ContentSession     `yaml:"sessions"`
}

type ContentSession struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Questions []domain.Question `yaml:"questions"`
}

// LoadContentFile parses a YAML content file.
func LoadContentFile(path string) (Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Content{}, err
	}
	return ParseContent(data)
}

// ParseContent parses YAML content and fills the parent ids of every question and participant.
func ParseContent(data []byte) (Content, error) {
	var content Content
	if err := yaml.Unmarshal(data, &content); err != nil {
		return Content{}, fmt.Errorf("parse content: %w", err)
	}
	for ei := range content.Entities {
		entity := &content.Entities[ei]
		for gi := range entity.Groups {
			group := &entity.Groups[gi]
			if err := domain.ValidateKeyIDs(group.ID); err != nil {
				return Content{}, fmt.Errorf("group %s: %w", group.ID, err)
			}
			for pi := range group.Participants {
				if err := domain.ValidateKeyIDs(group.Participants[pi].ParticipantID); err != nil {
					return Content{}, fmt.Errorf("group %s participant: %w", group.ID, err)
				}
				group.Participants[pi].GroupID = group.ID
			}
			for si := range group.Sessions {
				session := &group.Sessions[si]
				if err := domain.ValidateKeyIDs(session.ID); err != nil {
					return Content{}, fmt.Errorf("group %s session: %w", group.ID, err)
				}
				for qi := range session.Questions {
					q := &session.Questions[qi]
					if err := domain.ValidateKeyIDs(q.ID); err != nil {
						return Content{}, fmt.Errorf("session %s question: %w", session.ID, err)
					}
					q.EntityID = entity.ID
					q.GroupID = group.ID
					q.SessionID = session.ID
					if q.Order == 0 {
						q.Order = qi + 1
					}
				}
			}
		}
	}
	return content, nil
}

// Questions flattens the content into a map keyed by question id.
func (c Content) Questions() map[string]domain.Question {
	out := make(map[string]domain.Question)
	for _, entity := range c.Entities {
		for _, group := range entity.Groups {
			for _, session := range group.Sessions {
				for _, q := range session.Questions {
					out[q.ID] = q
				}
			}
		}
	}
	return out
}

// Participants returns every roster entry of the content.
func (c Content) Participants() []domain.Participant {
	var out []domain.Participant
	for _, entity := range c.Entities {
		for _, group := range entity.Groups {
			out = append(out, group.Participants...)
		}
	}
	return out
}

// StaticQuestionLoader is a loader backed by an in-memory map (content files, tests, demos).
type StaticQuestionLoader struct {
	questions map[string]domain.Question
}

func NewStaticQuestionLoader(questions map[string]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestion(_ context.Context, questionID string) (domain.Question, error) {
	if question, ok := l.questions[questionID]; ok {
		return question, nil
	}
	return domain.Question{}, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, questionID)
}
