package orchestrators

import (
	"context"
	"log/slog"
	"strings"

	"groomdesk/internal/domain/alimtalk"
	"groomdesk/internal/domain/appointment"
)

// TemplateStore reads and replaces the alimtalk templates.
type TemplateStore interface {
	Templates(ctx context.Context) ([]alimtalk.Template, error)
	SaveTemplates(ctx context.Context, list []alimtalk.Template) error
}

// SaveTemplateInput carries one edited template.
type SaveTemplateInput struct {
	Kind  string `json:"kind" validate:"required,oneof=reservation reminder completed deposit"`
	Title string `json:"title" validate:"max=100"`
	Body  string `json:"body" validate:"required,max=1000"`
}

// TemplateDeps holds dependencies for the template settings orchestrators.
type TemplateDeps struct {
	Store      TemplateStore
	GenerateID func() string
}

// ExecuteSaveTemplate replaces the template for input.Kind, adding it if missing.
// PRE: deps.Store is non-nil
// POST: at most one template exists per kind
func ExecuteSaveTemplate(ctx context.Context, input SaveTemplateInput, deps TemplateDeps) (alimtalk.Template, error) {
	input.Kind = strings.ToLower(strings.TrimSpace(input.Kind))
	input.Title = strings.TrimSpace(input.Title)
	if err := validateStruct(input).OrNil(); err != nil {
		return alimtalk.Template{}, err
	}
	list, err := deps.Store.Templates(ctx)
	if err != nil {
		return alimtalk.Template{}, err
	}

	tpl := alimtalk.Template{Kind: input.Kind, Title: input.Title, Body: input.Body}
	replaced := false
	for i, t := range list {
		if t.Kind == tpl.Kind {
			tpl.ID = t.ID
			list[i] = tpl
			replaced = true
			break
		}
	}
	if !replaced {
		tpl.ID = deps.GenerateID()
		list = append(list, tpl)
	}
	if err := tpl.Validate(); err != nil {
		return alimtalk.Template{}, &ValidationError{Fields: map[string]string{"body": err.Error()}}
	}
	if err := deps.Store.SaveTemplates(ctx, list); err != nil {
		return alimtalk.Template{}, err
	}
	slog.Info("alimtalk_template_saved", "kind", tpl.Kind, "template_id", tpl.ID)
	return tpl, nil
}

// ExecuteResetTemplates restores the starter templates, discarding edits.
func ExecuteResetTemplates(ctx context.Context, deps TemplateDeps) ([]alimtalk.Template, error) {
	defaults := alimtalk.Defaults()
	if err := deps.Store.SaveTemplates(ctx, defaults); err != nil {
		return nil, err
	}
	slog.Info("alimtalk_templates_reset", "count", len(defaults))
	return defaults, nil
}

// EnsureDefaultTemplates seeds the starter templates when none are stored, and
// adds a starter for any kind that is missing.
// POST: every alimtalk kind has a template
func EnsureDefaultTemplates(ctx context.Context, store TemplateStore) error {
	list, err := store.Templates(ctx)
	if err != nil {
		return err
	}
	added := 0
	for _, d := range alimtalk.Defaults() {
		if _, ok := alimtalk.FindByKind(list, d.Kind); !ok {
			list = append(list, d)
			added++
		}
	}
	if added == 0 {
		return nil
	}
	slog.Info("alimtalk_templates_seeded", "added", added)
	return store.SaveTemplates(ctx, list)
}

// PreviewTemplate renders body against a sample appointment for the settings page.
func PreviewTemplate(body string) string {
	tpl := alimtalk.Template{Body: body}
	return tpl.Render(appointment.Appointment{
		Date:      "2024-03-01",
		StartTime: "10:00",
		Guardian:  appointment.Guardian{Name: "Kim Minji"},
		Pets:      []appointment.Pet{{Name: "Bori"}},
		Service:   "Full groom",
		StaffName: "Jisoo",
	})
}
