package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/dataviz/internal/core"
	"github.com/JonMunkholm/dataviz/internal/format"
	"github.com/JonMunkholm/dataviz/internal/logging"
	"github.com/JonMunkholm/dataviz/internal/source"
	"github.com/JonMunkholm/dataviz/internal/table"
	"github.com/JonMunkholm/dataviz/internal/web/templates"
)

// acceptList is offered by the file input.
const acceptList = ".csv,.json,.xlsx,.parquet"

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// handlePage renders the full page with the session's current state.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = templates.Page(templates.PageParams{
		Accept: acceptList,
		Main:   templates.MainPane(sess.Controller.Snapshot()),
	}).Render(r.Context(), w)
	if err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handleLoad runs a load from the sidebar form and returns the main pane
// fragment. Plain form posts (no script) are redirected back to the page.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	in, err := s.readLoadForm(w, r)
	if err != nil {
		s.respondError(w, r, err, formErrorStatus(err))
		return
	}

	snap := s.service.Load(r.Context(), core.SessionIDFromContext(r.Context()), in)

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.MainPane(snap).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render main pane", "error", err)
	}
}

// loadRequest is the JSON body of POST /api/load. Data is base64 in JSON.
type loadRequest struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// Bind implements render.Binder.
func (l *loadRequest) Bind(r *http.Request) error {
	if len(l.Data) > 0 && strings.TrimSpace(l.Filename) == "" {
		return errFilenameRequired
	}
	return nil
}

// handleAPILoad runs a load from a JSON or multipart body and returns the
// resulting snapshot. A failed attempt answers 422 with the status inside.
func (s *Server) handleAPILoad(w http.ResponseWriter, r *http.Request) {
	var in source.RawInput

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var err error
		if in, err = s.readLoadForm(w, r); err != nil {
			s.respondError(w, r, err, formErrorStatus(err))
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxMessageSize)
		req := &loadRequest{}
		if err := render.Bind(r, req); err != nil {
			s.respondError(w, r, err, formErrorStatus(err))
			return
		}
		in = source.RawInput{Data: req.Data, Filename: req.Filename, URL: req.URL}
	}

	snap := s.service.Load(r.Context(), core.SessionIDFromContext(r.Context()), in)
	if snap.State == core.StateFailed {
		render.Status(r, http.StatusUnprocessableEntity)
	}
	render.JSON(w, r, newStateResponse(snap))
}

// handleState returns the session's current snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	render.JSON(w, r, newStateResponse(sess.Controller.Snapshot()))
}

// formatInfo describes a supported format.
type formatInfo struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	MediaType  string   `json:"media_type"`
	Extensions []string `json:"extensions"`
}

// handleFormats lists every registered format.
func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	codecs := format.All()
	out := make([]formatInfo, len(codecs))
	for i, c := range codecs {
		out[i] = formatInfo{
			Name:       c.Name,
			Label:      c.Tag.String(),
			MediaType:  c.MediaType,
			Extensions: format.Extensions(c.Tag),
		}
	}
	render.JSON(w, r, out)
}

// handleLimiterStatus reports load slot usage.
func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, struct {
		core.LimiterStatus
		Sessions int `json:"sessions"`
	}{s.service.Limiter().Status(), s.service.SessionCount()})
}

// handleExport re-encodes the displayed table in the requested format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "format"))
	codec, ok := format.LookupName(name)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", errUnknownExport, name), http.StatusBadRequest)
		return
	}

	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	snap := sess.Controller.Snapshot()
	if snap.State != core.StateDisplayed || snap.Table == nil {
		s.respondError(w, r, errNoDataset, http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := format.Encode(&buf, snap.Table, codec.Tag); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", codec.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(snap.Source, codec.Extension)))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write", "error", err)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"sessions": s.service.SessionCount(),
		"loads":    s.service.Limiter().ActiveCount(),
	})
}

// readLoadForm parses the multipart form shared by /load and /api/load.
// The body is capped at the max message size; an absent or empty file
// field leaves Data empty so the URL branch can apply.
func (s *Server) readLoadForm(w http.ResponseWriter, r *http.Request) (source.RawInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxMessageSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return source.RawInput{}, err
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	in := source.RawInput{URL: r.FormValue("url")}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return in, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return in, err
	}
	in.Data = data
	in.Filename = header.Filename
	return in, nil
}

// formErrorStatus maps body errors to 413 or 400.
func formErrorStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// exportName swaps the source extension for ext.
func exportName(src, ext string) string {
	base := path.Base(strings.ReplaceAll(src, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "dataset"
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + ext
}

// columnInfo describes a displayed column in API responses.
type columnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// stateResponse is the JSON form of a snapshot.
type stateResponse struct {
	core.Snapshot
	Columns []columnInfo `json:"columns,omitempty"`
}

func newStateResponse(snap core.Snapshot) stateResponse {
	resp := stateResponse{Snapshot: snap}
	if snap.Table != nil {
		resp.Columns = columnsOf(snap.Table)
	}
	return resp
}

func columnsOf(t *table.Table) []columnInfo {
	cols := t.Columns()
	out := make([]columnInfo, len(cols))
	for i, c := range cols {
		out[i] = columnInfo{Name: c.Name, Kind: c.Kind.String()}
	}
	return out
}
