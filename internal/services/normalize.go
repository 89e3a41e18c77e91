package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-quest-backend/internal/domain"
	"github.com/tbourn/go-quest-backend/internal/generator"
)

// Defaults applied to generator output.
const (
	DefaultTitle     = "Untitled Quest"
	DefaultQuestType = "general"
	DefaultTaskXP    = 10

	titleMaxRunes = 255
)

// NormalizedQuest is generator output after defaulting.
type NormalizedQuest struct {
	Title       string
	Description string
	Content     domain.QuestContent
}

var tagCaser = cases.Lower(language.Und)

// NormalizeQuest parses generator output field by field and fills every
// missing or mistyped field: title, description (the theme), quest type, task
// ids (task-<n>), task XP and rewards. Difficulty and length come from the
// request. Only input that is not a JSON object is an error.
func NormalizeQuest(raw []byte, req generator.Request) (*NormalizedQuest, error) {
	raw = bytes.TrimSpace([]byte(generator.StripCodeFences(string(raw))))
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("generator output is not a JSON object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode generator output: %w", err)
	}

	out := &NormalizedQuest{
		Title:       clipRunes(collapseSpaces(stringField(fields, "title")), titleMaxRunes),
		Description: strings.TrimSpace(stringField(fields, "description")),
	}
	if out.Title == "" {
		out.Title = DefaultTitle
	}
	if out.Description == "" {
		out.Description = strings.TrimSpace(req.Theme)
	}

	qt := tagCaser.String(collapseSpaces(stringField(fields, "questType")))
	if qt == "" {
		qt = DefaultQuestType
	}

	var items []json.RawMessage
	if err := json.Unmarshal(fields["tasks"], &items); err != nil {
		items = nil
	}
	tasks := make([]domain.Task, 0, len(items))
	for i, item := range items {
		var tf map[string]json.RawMessage
		if err := json.Unmarshal(item, &tf); err != nil {
			tf = nil
		}
		t := domain.Task{
			ID:          strings.TrimSpace(stringField(tf, "id")),
			Title:       collapseSpaces(stringField(tf, "title")),
			Description: strings.TrimSpace(stringField(tf, "description")),
			XP:          DefaultTaskXP,
		}
		if t.ID == "" {
			t.ID = fmt.Sprintf("task-%d", i+1)
		}
		if xp, ok := intField(tf, "xp"); ok && xp > 0 {
			t.XP = xp
		}
		tasks = append(tasks, t)
	}

	content := domain.QuestContent{
		QuestType:  qt,
		Difficulty: req.Complexity,
		Length:     req.Length,
		Tasks:      tasks,
	}
	content.Rewards.XP = content.TotalXP()
	content.Rewards.Achievements = []string{}

	var rf map[string]json.RawMessage
	if err := json.Unmarshal(fields["rewards"], &rf); err == nil {
		if xp, ok := intField(rf, "xp"); ok && xp > 0 {
			content.Rewards.XP = xp
		}
		var list []json.RawMessage
		if err := json.Unmarshal(rf["achievements"], &list); err == nil {
			for _, el := range list {
				var a string
				if json.Unmarshal(el, &a) != nil {
					continue
				}
				if a = strings.TrimSpace(a); a != "" {
					content.Rewards.Achievements = append(content.Rewards.Achievements, a)
				}
			}
		}
	}
	out.Content = content
	return out, nil
}

// stringField decodes fields[key] as a string; absent or mistyped gives "".
func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		return ""
	}
	return s
}

// intField decodes fields[key] as an integer. Fractions and other types are
// reported as missing.
func intField(fields map[string]json.RawMessage, key string) (int, bool) {
	var n int
	if err := json.Unmarshal(fields[key], &n); err != nil {
		return 0, false
	}
	return n, true
}

// collapseSpaces trims whitespace and collapses runs of it to one space.
func collapseSpaces(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

var whitespaceRE = regexp.MustCompile(`\s+`)

func clipRunes(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}
