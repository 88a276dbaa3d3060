// Package documents renders read-only exports of entity snapshots: patient
// ID cards, death certificates, referral letters and autopsy reports.
// Rendering never touches the stores.
package documents

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/ehr/wardstate/internal/domain/autopsy"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/platform/apperr"
)

// Kind names a document template.
type Kind string

const (
	KindIDCard           Kind = "id_card"
	KindDeathCertificate Kind = "death_certificate"
	KindReferralLetter   Kind = "referral_letter"
	KindAutopsyReport    Kind = "autopsy_report"
)

const dateLayout = "02 Jan 2006"

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format(dateLayout)
	},
	"datep": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Format(dateLayout)
	},
	"fallback": func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	},
}

var templates = map[Kind]*template.Template{
	KindIDCard: template.Must(template.New("id_card").Funcs(funcs).Parse(`PATIENT IDENTIFICATION CARD
Name:        {{.Patient.Name}}
Patient ID:  {{.Patient.ID}}
Age/Gender:  {{.Patient.Age}} / {{fallback .Patient.Gender "-"}}
Blood group: {{fallback .Patient.BloodGroup "-"}}
Contact:     {{fallback .Patient.Contact "-"}}
Doctor:      {{fallback .Patient.AssignedDoctor "-"}}
Issued:      {{date .Issued}}
`)),
	KindDeathCertificate: template.Must(template.New("death_certificate").Funcs(funcs).Parse(`CERTIFICATE OF DEATH
This certifies that {{.Patient.Name}} (patient {{.Patient.ID}}), aged {{.Patient.Age}},
died on {{datep .Patient.DeceasedAt}}.
Cause of death: {{fallback .Case.CauseOfDeath "pending autopsy"}}
{{- if .Case.ID}}
Autopsy case:   {{.Case.ID}} ({{.Case.Status}})
{{- end}}
Attending:      {{fallback .Patient.AssignedDoctor "-"}}
Issued:         {{date .Issued}}
`)),
	KindReferralLetter: template.Must(template.New("referral_letter").Funcs(funcs).Parse(`{{date .Date}}

To: {{fallback .To "Consultant"}}
From: {{fallback .From .Patient.AssignedDoctor}}
Re: {{.Patient.Name}}, {{.Patient.Age}}, {{fallback .Patient.Gender "-"}} (patient {{.Patient.ID}})

{{.Body}}
`)),
	KindAutopsyReport: template.Must(template.New("autopsy_report").Funcs(funcs).Parse(`AUTOPSY REPORT
Case:          {{.Case.ID}}
Subject:       {{.Case.SubjectName}}
Date of death: {{date .Case.DateOfDeath}}
Cause:         {{fallback .Case.CauseOfDeath "-"}}
Pathologist:   {{fallback .Case.Pathologist "-"}}
Status:        {{.Case.Status}}

{{.Case.Report}}
{{- if .Case.PathologistNotes}}

Notes:
{{.Case.PathologistNotes}}
{{- end}}
`)),
}

// Render executes the template for kind against data.
func Render(kind Kind, data any) ([]byte, error) {
	tpl, ok := templates[kind]
	if !ok {
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}
	return buf.Bytes(), nil
}

// IDCard renders a patient's identification card.
func IDCard(p patient.Patient, issued time.Time) ([]byte, error) {
	return Render(KindIDCard, struct {
		Patient patient.Patient
		Issued  time.Time
	}{p, issued})
}

// DeathCertificate renders the certificate for a deceased patient. The
// autopsy case is optional.
func DeathCertificate(p patient.Patient, c autopsy.Case, issued time.Time) ([]byte, error) {
	if p.Condition != patient.ConditionDeceased {
		return nil, apperr.Validation("death certificate", "patient %s is not recorded as deceased", p.ID)
	}
	return Render(KindDeathCertificate, struct {
		Patient patient.Patient
		Case    autopsy.Case
		Issued  time.Time
	}{p, c, issued})
}

// Referral is the addressing and body of a referral letter.
type Referral struct {
	To   string
	From string
	Body string
	Date time.Time
}

// ReferralLetter renders a referral letter for p.
func ReferralLetter(p patient.Patient, r Referral) ([]byte, error) {
	if strings.TrimSpace(r.Body) == "" {
		return nil, apperr.Validation("referral letter", "letter body is required")
	}
	return Render(KindReferralLetter, struct {
		Patient patient.Patient
		Referral
	}{p, r})
}

// AutopsyReport renders the report of an autopsy case.
func AutopsyReport(c autopsy.Case) ([]byte, error) {
	if strings.TrimSpace(c.Report) == "" {
		return nil, apperr.Validation("autopsy report", "case %s has no report", c.ID)
	}
	return Render(KindAutopsyReport, struct{ Case autopsy.Case }{c})
}
