package campaign

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/familynest/backend/internal/domain/campaign"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templateFS embed.FS

// Email is a rendered subject and HTML body
type Email struct {
	Subject string
	HTML    string
}

// DripEmail is the data for a lifecycle drip email
type DripEmail struct {
	Type          campaign.Type
	RecipientName string
	FamilyName    string
	Journals      int64
}

// BirthdayEmail is the data for a birthday reminder
type BirthdayEmail struct {
	RecipientName string
	CelebrantName string
	When          string
}

// CapsuleEmail is the data for capsule unlock and passing notices
type CapsuleEmail struct {
	RecipientName string
	SenderName    string
	Title         string
	CapsuleID     uuid.UUID
}

// DigestEmail is the data for the weekly digest
type DigestEmail struct {
	RecipientName string
	FamilyName    string
	Journals      int64
	Photos        int64
	VoiceMemos    int64
	Stories       int64
}

// Total returns the number of memories in the digest
func (d DigestEmail) Total() int64 {
	return d.Journals + d.Photos + d.VoiceMemos + d.Stories
}

type view struct {
	BaseURL string
	Data    any
}

// Renderer composes notification emails from the embedded templates
type Renderer struct {
	tmpl    *template.Template
	baseURL string
}

// NewRenderer parses the email templates. Links are rooted at baseURL.
func NewRenderer(baseURL string) (*Renderer, error) {
	tmpl, err := template.New("email").Funcs(template.FuncMap{
		"title": titleCase,
		"count": formatCount,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Renderer{
		tmpl:    tmpl,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Drip renders a lifecycle drip email
func (r *Renderer) Drip(d DripEmail) (Email, error) {
	subject, ok := dripSubjects[d.Type]
	if !ok {
		return Email{}, fmt.Errorf("no template for campaign %q", d.Type)
	}
	return r.render(string(d.Type), subject, d)
}

var dripSubjects = map[campaign.Type]string{
	campaign.TypeDay1Nudge:         "Add your first photo to the nest",
	campaign.TypeDay3Discovery:     "Three things to try in Family Nest",
	campaign.TypeDay5Invite:        "Invite your family to the nest",
	campaign.TypeDay14Upgrade:      "Keep your family's story safe",
	campaign.TypeDay30Reengagement: "Your family nest misses you",
}

// Birthday renders a birthday reminder
func (r *Renderer) Birthday(d BirthdayEmail) (Email, error) {
	subject := fmt.Sprintf("%s's birthday is coming up on %s", titleCase(d.CelebrantName), d.When)
	return r.render("birthday_reminder", subject, d)
}

// CapsuleUnlock renders the notice that a dated capsule opened
func (r *Renderer) CapsuleUnlock(d CapsuleEmail) (Email, error) {
	subject := fmt.Sprintf("A time capsule from %s has opened", titleCase(d.SenderName))
	return r.render("capsule_unlock", subject, d)
}

// PassingNotice renders the notice that a capsule opened upon its sender's passing
func (r *Renderer) PassingNotice(d CapsuleEmail) (Email, error) {
	subject := fmt.Sprintf("%s left a time capsule for you", titleCase(d.SenderName))
	return r.render("passing_notice", subject, d)
}

// WeeklyDigest renders the Sunday digest
func (r *Renderer) WeeklyDigest(d DigestEmail) (Email, error) {
	subject := fmt.Sprintf("This week in the %s nest", titleCase(d.FamilyName))
	return r.render("weekly_digest", subject, d)
}

func (r *Renderer) render(name, subject string, data any) (Email, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, view{BaseURL: r.baseURL, Data: data}); err != nil {
		return Email{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Email{Subject: subject, HTML: buf.String()}, nil
}

// titleCase capitalizes each word of a display name.
// A Caser holds state, so one is built per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

func formatCount(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}
