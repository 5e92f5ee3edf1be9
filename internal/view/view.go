// Package view renders the dashboard page and the teacher lookup fragment.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/noah-isme/teacher-dashboard-api/internal/dto"
	"github.com/noah-isme/teacher-dashboard-api/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// DashboardPage is the data bound to the full dashboard page.
type DashboardPage struct {
	Title    string
	UserName string
	Nonce    string
	Payload  dto.DashboardPayload
}

// Renderer holds the parsed templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	templates, err := template.New("view").Funcs(template.FuncMap{
		"score":     formatScore,
		"percent":   formatPercent,
		"timestamp": formatTimestamp,
		"tier":      tierOf,
		"tierLabel": tierLabel,
		"tierClass": tierClass,
		"orNA":      orNA,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: templates}, nil
}

// Dashboard writes the full dashboard page.
func (r *Renderer) Dashboard(w io.Writer, page DashboardPage) error {
	return r.templates.ExecuteTemplate(w, "dashboard.html", page)
}

// TeacherStudents writes the per-teacher student table fragment.
func (r *Renderer) TeacherStudents(w io.Writer, response dto.TeacherStudentsResponse) error {
	return r.templates.ExecuteTemplate(w, "teacher_students.html", response)
}

func formatScore(score *float64) string {
	if score == nil {
		return "N/A"
	}
	return formatPercent(*score)
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

func formatTimestamp(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return "Never"
	}
	return ts.UTC().Format("2006-01-02 15:04")
}

func tierOf(score *float64) string {
	return string(service.TierFor(score))
}

func tierLabel(tier string) string {
	switch service.PerformanceTier(tier) {
	case service.TierExcellent:
		return "Excellent"
	case service.TierGood:
		return "Good"
	case service.TierAverage:
		return "Average"
	case service.TierBelowAverage:
		return "Below Average"
	default:
		return "Needs Help"
	}
}

func tierClass(tier string) string {
	return strings.ReplaceAll(tier, "_", "-")
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}
