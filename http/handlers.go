package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"svmpredict/ml"
	"svmpredict/workflow"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Notices []workflow.Notice `json:"notices,omitempty"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Datasets int    `json:"datasets"`
	Sessions int    `json:"sessions"`
}

type datasetSummary struct {
	Name          string   `json:"name"`
	InputFeatures []string `json:"input_features"`
	Labels        int      `json:"labels"`
}

type predictRequest struct {
	Features map[string]float64 `json:"features"`
}

type predictResponse struct {
	Dataset  string             `json:"dataset"`
	Raw      ml.ClassOutput     `json:"raw"`
	Label    string             `json:"label"`
	Features []workflow.Feature `json:"features"`
	Notices  []workflow.Notice  `json:"notices,omitempty"`
}

type apiHandler struct {
	wf     *workflow.Workflow
	hub    *SessionHub
	logger *zap.Logger
}

func newAPIHandler(wf *workflow.Workflow, hub *SessionHub, logger *zap.Logger) *apiHandler {
	return &apiHandler{wf: wf, hub: hub, logger: logger}
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:   "ok",
		Datasets: h.wf.Registry().Len(),
		Sessions: h.hub.Len(),
	})
}

func (h *apiHandler) listDatasets(w http.ResponseWriter, r *http.Request) {
	names := h.wf.ListDatasetNames()
	out := make([]datasetSummary, 0, len(names))
	for _, name := range names {
		p, err := h.wf.GetProfile(name)
		if err != nil {
			continue
		}
		out = append(out, datasetSummary{Name: p.Name, InputFeatures: p.InputFeatures, Labels: len(p.ClassLabels)})
	}
	render.JSON(w, r, out)
}

// getDataset runs the load sequence and returns the resulting view: status
// notices, defaults and a sample preview.
func (h *apiHandler) getDataset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.selectDataset(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, session.View())
}

func (h *apiHandler) predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	session, ok := h.selectDataset(w, r)
	if !ok {
		return
	}
	if session.State() == workflow.StateModelLoadFailed {
		writeErrorNotices(w, r, http.StatusServiceUnavailable, "model unavailable", session.View().Notices)
		return
	}
	if err := session.SetInputs(req.Features); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	vector := session.Vector()
	result, err := session.Predict(r.Context())
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, workflow.ErrModelUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeErrorNotices(w, r, status, err.Error(), session.View().Notices)
		return
	}
	render.JSON(w, r, predictResponse{
		Dataset:  session.Profile().Name,
		Raw:      result.Raw,
		Label:    result.Label,
		Features: vector.Features(),
		Notices:  session.View().Notices,
	})
}

func (h *apiHandler) selectDataset(w http.ResponseWriter, r *http.Request) (*workflow.Session, bool) {
	name := chi.URLParam(r, "name")
	session := h.wf.NewSession()
	if err := session.Select(name); err != nil {
		if errors.Is(err, workflow.ErrUnknownDataset) {
			writeError(w, r, http.StatusNotFound, err.Error())
		} else {
			h.logger.Error("select dataset", zap.String("dataset", name), zap.Error(err))
			writeError(w, r, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return session, true
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeErrorNotices(w, r, status, msg, nil)
}

func writeErrorNotices(w http.ResponseWriter, r *http.Request, status int, msg string, notices []workflow.Notice) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg, Notices: notices})
}
