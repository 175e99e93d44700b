package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/export"
	"github.com/matzehuels/templatestudio/pkg/session"
	"github.com/matzehuels/templatestudio/pkg/template"
)

// =============================================================================
// Templates
// =============================================================================

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	defs := s.opts.Registry.List()
	out := make([]templateJSON, len(defs))
	for i, d := range defs {
		out[i] = toTemplateJSON(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) template(r *http.Request) (*template.Definition, error) {
	return s.opts.Registry.Get(chi.URLParam(r, "id"))
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	d, err := s.template(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateJSON(d))
}

// templatePreview renders a thumbnail. Query parameters named after fields
// override defaults; "scale" picks the size and defaults to the template's
// preview scale.
func (s *Server) templatePreview(w http.ResponseWriter, r *http.Request) {
	d, err := s.template(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	values := template.Props{}
	q := r.URL.Query()
	for _, f := range d.Fields {
		if !q.Has(f.Key) {
			continue
		}
		v, err := f.Parse(q.Get(f.Key))
		if err != nil {
			s.writeError(w, err)
			return
		}
		values[f.Key] = v
	}
	s.preview(w, r, d, values)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request, d *template.Definition, values template.Props) {
	scale := d.PreviewScale
	if raw := r.URL.Query().Get("scale"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid scale %q", raw))
			return
		}
		scale = v
	}

	data, hit, err := s.opts.Previews.Preview(r.Context(), d, values, scale)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cache := "miss"
	if hit {
		cache = "hit"
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Cache", cache)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// exportTemplate exports a template with the JSON values in the body in a
// throwaway session.
func (s *Server) exportTemplate(w http.ResponseWriter, r *http.Request) {
	d, err := s.template(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var values template.Props
	if r.ContentLength != 0 {
		if err := decodeBody(r, &values); err != nil {
			s.writeError(w, err)
			return
		}
	}

	sess, err := session.New(s.opts.Registry, d.ID, session.WithLoader(s.opts.Loader), session.WithLogger(s.logger))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.Apply(values); err != nil {
		s.writeError(w, err)
		return
	}
	s.export(w, r, sess)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	_, err := sess.Export(r.Context(), s.opts.Exporter, export.HTTPSink{W: w})
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrCodeDelivery):
		// The response is already committed.
		s.logger.Warn("export delivery failed", "session", sess.ID, "err", err)
	default:
		s.writeError(w, err)
	}
}

// =============================================================================
// Sessions
// =============================================================================

type templateRequest struct {
	Template string `json:"template"`
}

type fieldRequest struct {
	Value string `json:"value"`
}

func (s *Server) session(r *http.Request) (*session.Session, error) {
	return s.opts.Sessions.Get(chi.URLParam(r, "id"))
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.opts.Sessions.Create(req.Template)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Debug("session created", "session", sess.ID, "template", req.Template)
	writeJSON(w, http.StatusCreated, toSessionJSON(sess))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session(r); err != nil {
		s.writeError(w, err)
		return
	}
	s.opts.Sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) selectTemplate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req templateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.Select(req.Template); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

func (s *Server) commitField(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req fieldRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.Commit(chi.URLParam(r, "key"), req.Value); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

func (s *Server) sessionPreview(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.preview(w, r, sess.Template(), sess.Values())
}

func (s *Server) exportSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.export(w, r, sess)
}
