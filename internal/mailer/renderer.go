package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// SlotView one slot as shown in an availability email
type SlotView struct {
	Date       string // Monday, 3 June 2024
	Time       string // HH:MM
	Location   string
	Spaces     int
	BookingURL string
	Provider   string
}

// AvailabilityData payload of the "availability" template
type AvailabilityData struct {
	Multiple bool
	Slots    []SlotView
	SiteURL  string
}

// SelectionView one subscribed slot in a confirmation email
type SelectionView struct {
	Date     string
	Time     string
	Location string
}

// ConfirmationData payload of the "confirmation" template
type ConfirmationData struct {
	Email      string
	Selections []SelectionView
	SiteURL    string
}

// Renderer executes the embedded HTML templates
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("emails").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render executes templates/<name>.html
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
