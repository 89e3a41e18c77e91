package generator

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a game designer who turns everyday tasks into short quests.
Respond with a single JSON object and nothing else. Schema:
{
  "title": string,
  "description": string,
  "questType": string,
  "tasks": [{"id": string, "title": string, "description": string, "xp": integer}],
  "rewards": {"xp": integer, "achievements": [string]}
}`

// taskCounts maps a requested length to the number of sub-tasks to ask for.
var taskCounts = map[string]string{
	"short":  "2-3",
	"medium": "4-5",
	"long":   "6-8",
}

// xpRanges maps complexity to the XP range per task.
var xpRanges = map[string]string{
	"easy":   "5-15",
	"medium": "10-25",
	"hard":   "20-50",
}

// BuildPrompt renders the user prompt for req.
func BuildPrompt(req Request) string {
	count, ok := taskCounts[req.Length]
	if !ok {
		count = taskCounts["medium"]
	}
	xp, ok := xpRanges[req.Complexity]
	if !ok {
		xp = xpRanges["medium"]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s quest for: %s\n", req.Complexity, strings.TrimSpace(req.Theme))
	fmt.Fprintf(&b, "Use %s tasks, each worth %s XP.\n", count, xp)
	b.WriteString("Rewards xp must equal the sum of task xp. Keep titles under 60 characters.")
	return b.String()
}
