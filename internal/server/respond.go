package server

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/session"
	"github.com/matzehuels/templatestudio/pkg/template"
)

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps error codes to HTTP statuses.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFilename, errors.ErrCodeInvalidField,
		errors.ErrCodeInvalidTemplate:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeTemplateNotFound, errors.ErrCodeSessionNotFound,
		errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeExportInProgress:
		return http.StatusConflict
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

type fieldJSON struct {
	Key         string           `json:"key"`
	Label       string           `json:"label"`
	Kind        template.Kind    `json:"kind"`
	Placeholder string           `json:"placeholder,omitempty"`
	Bounds      *template.Bounds `json:"bounds,omitempty"`
	Rows        int              `json:"rows,omitempty"`
}

type templateJSON struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	GalleryScale float64        `json:"galleryScale"`
	PreviewScale float64        `json:"previewScale"`
	Filename     string         `json:"filename"`
	Fields       []fieldJSON    `json:"fields"`
	Defaults     template.Props `json:"defaults"`
}

func toTemplateJSON(d *template.Definition) templateJSON {
	fields := make([]fieldJSON, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = fieldJSON{
			Key:         f.Key,
			Label:       f.Label,
			Kind:        f.Kind,
			Placeholder: f.Placeholder,
			Bounds:      f.Bounds,
			Rows:        f.Rows,
		}
	}
	return templateJSON{
		ID:           d.ID,
		Name:         d.Name,
		Width:        d.Width,
		Height:       d.Height,
		GalleryScale: d.GalleryScale,
		PreviewScale: d.PreviewScale,
		Filename:     d.Filename(),
		Fields:       fields,
		Defaults:     d.DefaultProps(),
	}
}

type sessionJSON struct {
	ID        string         `json:"id"`
	Template  string         `json:"template"`
	Values    template.Props `json:"values"`
	Exporting bool           `json:"exporting"`
}

func toSessionJSON(s *session.Session) sessionJSON {
	return sessionJSON{
		ID:        s.ID,
		Template:  s.Template().ID,
		Values:    s.Values(),
		Exporting: s.Exporting(),
	}
}
