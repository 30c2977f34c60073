package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"bizdesk/internal/classify"
	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
	"bizdesk/internal/pipeline"
)

var palette = map[string]lipgloss.Color{
	"default":    lipgloss.Color("245"),
	"processing": lipgloss.Color("33"),
	"success":    lipgloss.Color("35"),
	"warning":    lipgloss.Color("214"),
	"error":      lipgloss.Color("196"),
	"purple":     lipgloss.Color("135"),
	"green":      lipgloss.Color("34"),
	"blue":       lipgloss.Color("39"),
	"orange":     lipgloss.Color("208"),
	"red":        lipgloss.Color("160"),
	"cyan":       lipgloss.Color("44"),
	"gold":       lipgloss.Color("178"),
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("160")).
			Padding(0, 1)
)

func badge(p classify.Presentation) string {
	c, ok := palette[p.Color]
	if !ok {
		c = palette["default"]
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(p.Label)
}

func newTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	return tw
}

func errorPanel(err error) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("error: " + gateway.Message(err)))
	if fields := gateway.FieldErrors(err); len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "\n  %s: %s", name, strings.Join(fields[name], ", "))
		}
	}
	var h hintError
	if errors.As(err, &h) {
		b.WriteString("\n" + mutedStyle.Render("try: "+h.hint))
	}
	return panelStyle.Render(b.String())
}

func idOrDash(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprint(*id)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func renderTasks(tasks []domain.Task) {
	tw := newTable(table.Row{"ID", "Title", "Type", "Status", "Priority", "Start", "End", "Project"})
	for _, t := range tasks {
		end := "-"
		if !t.End.IsZero() {
			end = t.End.String()
		}
		tw.AppendRow(table.Row{
			t.ID, t.Title,
			badge(classify.TaskType(t.Type)),
			badge(classify.TaskStatus(t.Status)),
			badge(classify.TaskPriority(t.Priority)),
			t.Start.String(), end, idOrDash(t.ProjectID),
		})
	}
	tw.Render()
}

func renderTask(t domain.Task) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("#%d %s", t.ID, t.Title)))
	fmt.Printf("  %s  %s  %s\n", badge(classify.TaskType(t.Type)), badge(classify.TaskStatus(t.Status)), badge(classify.TaskPriority(t.Priority)))
	when := t.Start.String()
	if !t.End.IsZero() {
		when += " -> " + t.End.String()
	}
	if t.AllDay {
		when += " (all day)"
	}
	fmt.Printf("  when:     %s\n", when)
	fmt.Printf("  assigned: %s\n", idOrDash(t.AssignedTo))
	fmt.Printf("  project:  %s\n", idOrDash(t.ProjectID))
	if t.Description != "" {
		fmt.Printf("\n%s\n", t.Description)
	}
}

func renderProjects(projects []domain.Project) {
	tw := newTable(table.Row{"ID", "Title", "Company", "Status", "Pipeline", "Stage", "Investment"})
	for _, p := range projects {
		tw.AppendRow(table.Row{
			p.ID, p.Title, p.CompanyName,
			badge(classify.ProjectStatus(p.Status)),
			idOrDash(p.PipelineTypeID), idOrDash(p.PipelineStageID),
			fmt.Sprintf("%.2f", p.InvestmentAmount),
		})
	}
	tw.Render()
}

func renderProject(p domain.Project, progress *pipeline.View) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("#%d %s", p.ID, p.Title)) + "  " + badge(classify.ProjectStatus(p.Status)))
	fmt.Printf("  company:    %s\n", orDash(p.CompanyName))
	fmt.Printf("  investment: %.2f\n", p.InvestmentAmount)
	fmt.Printf("  sector:     %s  governorate: %s\n", idOrDash(p.SectorID), idOrDash(p.GovernorateID))
	if progress != nil && len(progress.Stages) > 0 {
		fmt.Printf("  pipeline:   %s\n", stageBar(*progress))
	}
	if p.Description != "" {
		fmt.Printf("\n%s\n", p.Description)
	}
}

// stageBar renders the stages with the current one highlighted.
func stageBar(v pipeline.View) string {
	parts := make([]string, 0, len(v.Stages))
	for i, s := range v.Stages {
		style := mutedStyle
		switch {
		case i == v.Current:
			style = lipgloss.NewStyle().Bold(true).Foreground(palette["processing"])
		case i < v.Current:
			style = lipgloss.NewStyle().Foreground(palette["success"])
		}
		parts = append(parts, style.Render(s.Name))
	}
	return strings.Join(parts, " > ") + fmt.Sprintf("  (%d%%)", v.Percent)
}

func renderBlockages(items []domain.Blockage) {
	tw := newTable(table.Row{"ID", "Title", "Priority", "Status", "Blocks", "Expected", "Resolved"})
	for _, b := range items {
		tw.AppendRow(table.Row{
			b.ID, b.Title,
			badge(classify.BlockagePriority(b.Priority)),
			badge(classify.BlockageStatus(b.Status)),
			b.BlocksProgress, orDash(b.ExpectedResolutionDate), orDash(b.ResolvedAt),
		})
	}
	tw.Render()
}

func renderContacts(items []domain.Contact) {
	tw := newTable(table.Row{"ID", "Name", "Title", "Email", "Phone", "Primary", "External"})
	for _, c := range items {
		primary := ""
		if c.IsPrimary {
			primary = "*"
		}
		tw.AppendRow(table.Row{c.ID, c.Name, orDash(c.Title), orDash(c.Email), orDash(c.Phone), primary, c.IsExternal})
	}
	tw.Render()
}

func renderCounts[K ~string](title string, counts map[K]int, present func(K) classify.Presentation) {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	tw := newTable(table.Row{title, "Count"})
	for _, k := range keys {
		label := string(k)
		if present != nil {
			label = badge(present(k))
		}
		tw.AppendRow(table.Row{label, counts[k]})
	}
	tw.Render()
}

// --- prompts ---

func promptString(title string, secret bool) (string, error) {
	var value string
	input := huh.NewInput().
		Title(title).
		Value(&value)
	if secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.TrimSpace(value), nil
}

func promptConfirm(title string) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().
		Title(title).
		Value(&ok)
	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}

func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// valueOrPrompt returns value, prompting for it when empty and stdin is a terminal.
func valueOrPrompt(value, title string, secret bool) (string, error) {
	if value != "" {
		return value, nil
	}
	if !isInteractive() {
		return "", fmt.Errorf("%s is required", strings.ToLower(title))
	}
	v, err := promptString(title, secret)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(title))
	}
	return v, nil
}
