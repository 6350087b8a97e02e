package web

import (
	"log/slog"
	"net/http"

	"groomdesk/internal/application/orchestrators"
	"groomdesk/internal/domain/alimtalk"
)

func templateDeps() orchestrators.TemplateDeps {
	return orchestrators.TemplateDeps{Store: deps.Local, GenerateID: generateID}
}

// templateView pairs a stored template with its sample rendering.
type templateView struct {
	alimtalk.Template
	Preview string `json:"preview"`
}

func templateViews(list []alimtalk.Template) []templateView {
	views := make([]templateView, 0, len(list))
	for _, t := range list {
		views = append(views, templateView{Template: t, Preview: orchestrators.PreviewTemplate(t.Body)})
	}
	return views
}

// handleSettingsPage renders the alimtalk template editor.
func handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := requireSession(w, r); !ok {
		return
	}
	list, err := deps.Local.Templates(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "settings.html", map[string]any{
		"Templates": templateViews(list),
		"Kinds":     alimtalk.Kinds,
	})
}

// handleTemplates handles GET (list) and POST (save one kind) for /api/settings/templates
func handleTemplates(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := deps.Local.Templates(r.Context())
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, templateViews(list))
	case http.MethodPost:
		var input orchestrators.SaveTemplateInput
		if err := strictDecode(r, &input); err != nil {
			badRequest(w, "invalid JSON")
			return
		}
		tpl, err := orchestrators.ExecuteSaveTemplate(r.Context(), input, templateDeps())
		if err != nil {
			writeError(w, r, err)
			return
		}
		slog.Info("template_updated", "kind", tpl.Kind, "user_id", sess.UserID)
		writeJSON(w, http.StatusOK, templateView{Template: tpl, Preview: orchestrators.PreviewTemplate(tpl.Body)})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleTemplatesReset handles POST /api/settings/templates/reset.
func handleTemplatesReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if _, ok := requireOwner(w, r); !ok {
		return
	}
	list, err := orchestrators.ExecuteResetTemplates(r.Context(), templateDeps())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templateViews(list))
}

type previewRequest struct {
	Body string `json:"body"`
}

// handleTemplatePreview handles POST /api/settings/templates/preview.
// The html field is the markdown rendering shown beside the editor.
func handleTemplatePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if _, ok := requireSession(w, r); !ok {
		return
	}
	var req previewRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	text := orchestrators.PreviewTemplate(req.Body)
	writeJSON(w, http.StatusOK, map[string]string{
		"text": text,
		"html": string(renderMarkdown(text)),
	})
}

// handleReminders handles POST /api/reminders, sending the reminder template for one day.
func handleReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	sess, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var input orchestrators.SendRemindersInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	result, err := orchestrators.ExecuteSendReminders(r.Context(), input, orchestrators.SendRemindersDeps{
		Appointments: userClient(sess),
		Templates:    deps.Local,
		Sender:       deps.Sender,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
