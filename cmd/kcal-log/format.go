// cmd/kcal-log/format.go
package main

import (
	"fmt"
	"strings"

	"mcp-kcal-log/internal/models"
)

func formatSummary(s models.DaySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", s.Date)
	if len(s.Entries) == 0 {
		b.WriteString("No entries yet\n")
	}
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "  %-30s %5d kcal %4dg  %s\n", e.Name, e.Calories, e.Protein, e.ID)
	}
	fmt.Fprintf(&b, "Total: %d / %d kcal | %d / %dg protein\n",
		s.TotalCalories, s.TargetCalories, s.TotalProtein, s.TargetProtein)
	fmt.Fprintf(&b, "Remaining: %d kcal | %dg protein\n", s.RemainingCalories, s.RemainingProtein)
	return b.String()
}

func formatHistory(history []models.DayRecord) string {
	if len(history) == 0 {
		return "No history yet\n"
	}
	var b strings.Builder
	for _, d := range history {
		fmt.Fprintf(&b, "%s  %5d / %d kcal  %4d / %dg protein  (%d entries)\n",
			d.Date, d.TotalCalories, d.TargetCalories, d.TotalProtein, d.TargetProtein, len(d.Entries))
	}
	return b.String()
}

func formatProfile(p models.UserProfile) string {
	token := "EMPTY"
	if p.HasAPIKey() {
		token = "SET"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Gender: %s\n", p.Gender)
	fmt.Fprintf(&b, "Height: %d cm\n", p.HeightCm)
	fmt.Fprintf(&b, "Weight: %.1f kg\n", p.WeightKg)
	fmt.Fprintf(&b, "Targets: %d kcal | %dg protein\n", p.TargetCalories, p.TargetProtein)
	fmt.Fprintf(&b, "GitHub token: %s\n", token)
	fmt.Fprintf(&b, "Model: %s\n", p.Model)
	return b.String()
}
