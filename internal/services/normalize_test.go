package services

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tbourn/go-quest-backend/internal/generator"
)

var normReq = generator.Request{Theme: "clean the garage", Complexity: "hard", Length: "short"}

func TestNormalizeQuest_FullPayload(t *testing.T) {
	nq, err := NormalizeQuest([]byte(sampleQuestJSON), normReq)
	if err != nil {
		t.Fatalf("NormalizeQuest: %v", err)
	}
	if nq.Title != "Garage Glory" {
		t.Fatalf("title not collapsed: %q", nq.Title)
	}
	if nq.Description != "Turn the garage into a base" {
		t.Fatalf("description: %q", nq.Description)
	}
	c := nq.Content
	if c.QuestType != "cleaning" || c.Difficulty != "hard" || c.Length != "short" {
		t.Fatalf("content tags: %+v", c)
	}
	if len(c.Tasks) != 2 || c.Tasks[0].ID != "t1" || c.Tasks[1].ID != "task-2" {
		t.Fatalf("task ids: %+v", c.Tasks)
	}
	if c.Tasks[0].XP != 30 || c.Tasks[1].XP != 80 {
		t.Fatalf("task xp: %+v", c.Tasks)
	}
	if c.Rewards.XP != 110 || len(c.Rewards.Achievements) != 1 {
		t.Fatalf("rewards: %+v", c.Rewards)
	}
}

func TestNormalizeQuest_EmptyObjectGetsDefaults(t *testing.T) {
	nq, err := NormalizeQuest([]byte(`{}`), normReq)
	if err != nil {
		t.Fatalf("NormalizeQuest: %v", err)
	}
	if nq.Title != DefaultTitle {
		t.Fatalf("title = %q", nq.Title)
	}
	if nq.Description != "clean the garage" {
		t.Fatalf("description should default to theme, got %q", nq.Description)
	}
	if nq.Content.QuestType != DefaultQuestType {
		t.Fatalf("quest type = %q", nq.Content.QuestType)
	}
	if nq.Content.Tasks == nil || len(nq.Content.Tasks) != 0 {
		t.Fatalf("want empty non-nil task list, got %#v", nq.Content.Tasks)
	}
	if nq.Content.Rewards.XP != 0 || nq.Content.Rewards.Achievements == nil {
		t.Fatalf("rewards: %+v", nq.Content.Rewards)
	}
}

func TestNormalizeQuest_TaskDefaults(t *testing.T) {
	raw := `{"tasks":[{"title":"a"},{"id":"  ","xp":0},{"id":"x","xp":-5},{"xp":12}]}`
	nq, err := NormalizeQuest([]byte(raw), normReq)
	if err != nil {
		t.Fatalf("NormalizeQuest: %v", err)
	}
	wantIDs := []string{"task-1", "task-2", "x", "task-4"}
	wantXP := []int{DefaultTaskXP, DefaultTaskXP, DefaultTaskXP, 12}
	for i, task := range nq.Content.Tasks {
		if task.ID != wantIDs[i] || task.XP != wantXP[i] || task.Completed {
			t.Fatalf("task %d = %+v", i, task)
		}
	}
	// Reward XP defaults to the sum of task XP.
	if nq.Content.Rewards.XP != 42 {
		t.Fatalf("rewards xp = %d, want 42", nq.Content.Rewards.XP)
	}
}

func TestNormalizeQuest_CodeFencesAccepted(t *testing.T) {
	nq, err := NormalizeQuest([]byte("```json\n{\"title\":\"Fenced\"}\n```"), normReq)
	if err != nil || nq.Title != "Fenced" {
		t.Fatalf("got %+v, %v", nq, err)
	}
}

func TestNormalizeQuest_TitleClippedByRunes(t *testing.T) {
	long := strings.Repeat("é", titleMaxRunes+20)
	nq, err := NormalizeQuest([]byte(`{"title":"`+long+`"}`), normReq)
	if err != nil {
		t.Fatalf("NormalizeQuest: %v", err)
	}
	if utf8.RuneCountInString(nq.Title) != titleMaxRunes {
		t.Fatalf("title runes = %d", utf8.RuneCountInString(nq.Title))
	}
}

func TestNormalizeQuest_Rejects(t *testing.T) {
	bad := map[string]string{
		"empty":          "",
		"null":           "null",
		"array":          `[{"title":"x"}]`,
		"prose":          "Sure! Here is your quest.",
		"truncated":      `{"title":"x"`,
		"string literal": `"quest"`,
	}
	for name, raw := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := NormalizeQuest([]byte(raw), normReq); err == nil {
				t.Fatalf("expected error for %q", raw)
			}
		})
	}
}

func TestNormalizeQuest_MistypedFieldsFallBackIndividually(t *testing.T) {
	raw := `{
	  "title": 123,
	  "description": "Keep me",
	  "questType": ["x"],
	  "tasks": [
	    {"id": "a", "title": "Sweep", "xp": "ten"},
	    {"id": 7, "title": "Mop", "xp": 12.5},
	    "not an object",
	    {"id": "d", "title": "Dust", "xp": 40}
	  ],
	  "rewards": {"xp": "lots", "achievements": ["Clean Machine", 3, " "]}
	}`
	nq, err := NormalizeQuest([]byte(raw), normReq)
	if err != nil {
		t.Fatalf("NormalizeQuest: %v", err)
	}
	if nq.Title != DefaultTitle || nq.Description != "Keep me" {
		t.Fatalf("title/description: %q / %q", nq.Title, nq.Description)
	}
	if nq.Content.QuestType != DefaultQuestType {
		t.Fatalf("quest type = %q", nq.Content.QuestType)
	}
	want := []struct {
		id, title string
		xp        int
	}{
		{"a", "Sweep", DefaultTaskXP},
		{"task-2", "Mop", DefaultTaskXP},
		{"task-3", "", DefaultTaskXP},
		{"d", "Dust", 40},
	}
	if len(nq.Content.Tasks) != len(want) {
		t.Fatalf("tasks = %+v", nq.Content.Tasks)
	}
	for i, w := range want {
		got := nq.Content.Tasks[i]
		if got.ID != w.id || got.Title != w.title || got.XP != w.xp {
			t.Fatalf("task %d = %+v, want %+v", i, got, w)
		}
	}
	// mistyped reward xp falls back to the task sum; bad achievements are dropped
	if nq.Content.Rewards.XP != 70 {
		t.Fatalf("rewards xp = %d, want 70", nq.Content.Rewards.XP)
	}
	if len(nq.Content.Rewards.Achievements) != 1 || nq.Content.Rewards.Achievements[0] != "Clean Machine" {
		t.Fatalf("achievements = %v", nq.Content.Rewards.Achievements)
	}
}

func TestNormalizeQuest_WrongContainerTypes(t *testing.T) {
	nq, err := NormalizeQuest([]byte(`{"title":"Keep","tasks":"none","rewards":[1,2]}`), normReq)
	if err != nil {
		t.Fatalf("NormalizeQuest: %v", err)
	}
	if nq.Title != "Keep" {
		t.Fatalf("title = %q", nq.Title)
	}
	if nq.Content.Tasks == nil || len(nq.Content.Tasks) != 0 {
		t.Fatalf("want empty task list, got %#v", nq.Content.Tasks)
	}
	if nq.Content.Rewards.XP != 0 || nq.Content.Rewards.Achievements == nil {
		t.Fatalf("rewards: %+v", nq.Content.Rewards)
	}
}

func TestNormalizeRequest(t *testing.T) {
	req, err := normalizeRequest(GenerateInput{Theme: "  walk the dog "})
	if err != nil {
		t.Fatalf("normalizeRequest: %v", err)
	}
	if req.Theme != "walk the dog" || req.Complexity != "medium" || req.Length != "medium" {
		t.Fatalf("defaults: %+v", req)
	}

	req, err = normalizeRequest(GenerateInput{Theme: "x", Complexity: " HARD ", Length: "Long"})
	if err != nil || req.Complexity != "hard" || req.Length != "long" {
		t.Fatalf("case folding: %+v, %v", req, err)
	}

	cases := []struct {
		in   GenerateInput
		want error
	}{
		{GenerateInput{Theme: "   "}, ErrEmptyTheme},
		{GenerateInput{Theme: "x", Complexity: "extreme"}, ErrInvalidComplexity},
		{GenerateInput{Theme: "x", Length: "epic"}, ErrInvalidLength},
	}
	for _, c := range cases {
		if _, err := normalizeRequest(c.in); !errors.Is(err, c.want) {
			t.Fatalf("normalizeRequest(%+v) = %v, want %v", c.in, err, c.want)
		}
	}
}
