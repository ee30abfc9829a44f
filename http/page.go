package http

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"svmpredict/workflow"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

type pageData struct {
	View   workflow.View
	Errors []string
}

// pageHandler renders the prediction form. Each render runs a fresh session
// from the submitted form values.
type pageHandler struct {
	wf     *workflow.Workflow
	logger *zap.Logger
}

func newPageHandler(wf *workflow.Workflow, logger *zap.Logger) *pageHandler {
	return &pageHandler{wf: wf, logger: logger}
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := r.Form.Get("dataset")
	if name == "" {
		name = h.wf.Registry().First().Name
	}
	session := h.wf.NewSession()
	if err := session.Select(name); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	data := pageData{}
	if r.Method == http.MethodPost {
		data.Errors = h.applyForm(session, r)
		if r.Form.Get("predict") == "1" && len(data.Errors) == 0 {
			h.predict(r.Context(), session)
		}
	}
	data.View = session.View()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("render page", zap.Error(err))
	}
}

// applyForm copies the numeric fields of the form into the session. Blank
// fields keep their defaults.
func (h *pageHandler) applyForm(session *workflow.Session, r *http.Request) []string {
	if session.State() != workflow.StateAwaitingInput {
		return nil
	}
	var errs []string
	for _, feature := range session.Profile().InputFeatures {
		raw := r.Form.Get(feature)
		if raw == "" {
			continue
		}
		value, err := cast.ToFloat64E(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be a number, got %q", feature, raw))
			continue
		}
		if err := session.SetInput(feature, value); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// Prediction failures are already recorded as session notices.
func (h *pageHandler) predict(ctx context.Context, session *workflow.Session) {
	if _, err := session.Predict(ctx); err != nil {
		h.logger.Debug("page prediction failed", zap.String("dataset", session.Profile().Name), zap.Error(err))
	}
}
