package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/catalog"
	"github.com/dtnitsch/layout-editor/pkg/db"
	"github.com/dtnitsch/layout-editor/pkg/editor"
	"github.com/dtnitsch/layout-editor/pkg/export"
)

// sessionResponse is returned by every session endpoint.
type sessionResponse struct {
	SessionID string           `json:"session_id"`
	Page      catalog.PageInfo `json:"page"`
	Session   editor.Snapshot  `json:"session"`
	Changed   *bool            `json:"changed,omitempty"`
	GroupID   editor.GroupID   `json:"group_id,omitempty"`
	Deleted   *int             `json:"deleted,omitempty"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.catalog.ListDocuments()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

// pageSummary is a catalog page with its saved state.
type pageSummary struct {
	catalog.PageInfo
	Saved     bool `json:"saved"`
	BoxCount  int  `json:"box_count,omitempty"`
	Validated bool `json:"validated"`
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("doc")
	summaries, err := s.pageSummaries(r.Context(), docID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"doc_id": docID, "pages": summaries})
}

func (s *Server) pageSummaries(ctx context.Context, docID string) ([]pageSummary, error) {
	pages, err := s.catalog.ListPages(docID)
	if err != nil {
		return nil, err
	}
	statuses, err := s.store.ListPageStatuses(ctx, docID)
	if err != nil {
		return nil, err
	}
	byPage := make(map[int]models.PageStatus, len(statuses))
	for _, st := range statuses {
		byPage[st.PageNo] = st
	}

	out := make([]pageSummary, 0, len(pages))
	for _, p := range pages {
		sum := pageSummary{PageInfo: p}
		if st, ok := byPage[p.PageNo]; ok {
			sum.Saved = true
			sum.BoxCount = st.BoxCount
			sum.Validated = st.Validated
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": models.Categories})
}

type openRequest struct {
	DocID  string `json:"doc_id"`
	PageNo int    `json:"page_no"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.DocID == "" {
		s.writeError(w, r, fmt.Errorf("%w: doc_id is required", errBadRequest))
		return
	}

	page, sess, err := s.openPage(r.Context(), req.DocID, req.PageNo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ls := s.sessions.add(page, sess)
	s.logger.Debug("opened session", "session", ls.id, "page", page.Key().String())

	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: ls.id, Page: page, Session: sess.Snapshot()})
}

// openPage builds a session for a page from its saved record, or from its
// original file when it was never saved.
func (s *Server) openPage(ctx context.Context, docID string, pageNo int) (catalog.PageInfo, *editor.Session, error) {
	return s.preparePage(ctx, docID, pageNo, true)
}

// openOriginal builds a session from the page's original file, ignoring any
// saved record.
func (s *Server) openOriginal(ctx context.Context, docID string, pageNo int) (catalog.PageInfo, *editor.Session, error) {
	return s.preparePage(ctx, docID, pageNo, false)
}

func (s *Server) preparePage(ctx context.Context, docID string, pageNo int, useSaved bool) (catalog.PageInfo, *editor.Session, error) {
	page, err := s.catalog.Page(docID, pageNo)
	if err != nil {
		return catalog.PageInfo{}, nil, err
	}
	img, err := s.catalog.PageImage(page)
	if err != nil {
		return catalog.PageInfo{}, nil, err
	}

	opts := editor.Options{
		Width:          float64(img.Width),
		Height:         float64(img.Height),
		MinBoxSize:     s.cfg.MinBoxSize,
		SaveOnValidate: s.cfg.SavesOnValidate(),
		SourcePath:     page.JSONPath,
	}

	if !useSaved {
		return s.originalSession(page, opts)
	}

	rec, err := s.store.LoadPage(ctx, docID, pageNo)
	switch {
	case err == nil:
		opts.Validated, opts.ValidatedAt = rec.Validated, rec.ValidatedAt
		sess := editor.NewSession(page.Key(), s.store, opts)
		if err := sess.LoadWithGroups(rec.Boxes, rec.Groups); err != nil {
			return catalog.PageInfo{}, nil, fmt.Errorf("failed to load saved page %s: %w", page.Key(), err)
		}
		return page, sess, nil
	case errors.Is(err, db.ErrPageNotFound):
		return s.originalSession(page, opts)
	default:
		return catalog.PageInfo{}, nil, err
	}
}

func (s *Server) originalSession(page catalog.PageInfo, opts editor.Options) (catalog.PageInfo, *editor.Session, error) {
	boxes, err := s.catalog.ReadBoxes(page)
	if err != nil {
		return catalog.PageInfo{}, nil, err
	}
	sess := editor.NewSession(page.Key(), s.store, opts)
	if err := sess.Load(boxes); err != nil {
		return catalog.PageInfo{}, nil, fmt.Errorf("failed to load %s: %w", page.JSONPath, err)
	}
	return page, sess, nil
}

func (s *Server) lookup(r *http.Request) (*liveSession, error) {
	sid := r.PathValue("sid")
	ls, ok := s.sessions.get(sid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, sid)
	}
	return ls, nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ls, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: ls.id, Page: ls.page, Session: ls.session.Snapshot()})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sid := r.PathValue("sid")
	if !s.sessions.remove(sid) {
		s.writeError(w, r, fmt.Errorf("%w: %s", errSessionNotFound, sid))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// navigateResponse names the neighbouring page and its position.
type navigateResponse struct {
	Page     catalog.PageInfo `json:"page"`
	Position int              `json:"position"`
	Total    int              `json:"total"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageNo, err := pageParam(q.Get("page"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var forward bool
	switch q.Get("direction") {
	case "", "next":
		forward = true
	case "prev", "previous":
	default:
		s.writeError(w, r, fmt.Errorf("%w: direction must be next or prev", errBadRequest))
		return
	}

	page, pos, total, err := s.catalog.Navigate(q.Get("doc"), pageNo, forward)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, navigateResponse{Page: page, Position: pos, Total: total})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageNo, err := pageParam(q.Get("page"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.catalog.Page(q.Get("doc"), pageNo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	img, err := s.catalog.PageImage(page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/"+img.Format)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(img.Data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	jsonName, jsonData, err := formFile(r, "json_file")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	imageName, imageData, err := formFile(r, "image_file")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.catalog.SaveUpload(UploadRoot, jsonName, jsonData, imageName, imageData)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("stored upload", "doc", page.DocID, "page", page.PageNo, "json", page.JSONPath)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"page": page})
}

func formFile(r *http.Request, field string) (string, []byte, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s is required", errBadRequest, field)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to read %s: %v", errBadRequest, field, err)
	}
	return header.Filename, data, nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	docID := q.Get("doc")
	ctx := r.Context()

	var (
		v    interface{}
		name = "project"
	)
	switch {
	case docID != "" && q.Get("page") != "":
		pageNo, err := pageParam(q.Get("page"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if format == export.FormatPDF {
			s.writeError(w, r, fmt.Errorf("%w: pdf export covers whole documents", errBadRequest))
			return
		}
		v, err = s.exporter.Page(ctx, docID, pageNo)
		name = fmt.Sprintf("%s_page_%d", docID, pageNo)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	case docID != "":
		name = docID
		if format != export.FormatPDF {
			if v, err = s.exporter.Document(ctx, docID); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
	default:
		if format != export.FormatPDF {
			if v, err = s.exporter.Project(ctx); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
	}

	if format == export.FormatPDF {
		// Rendered in full before writing so failures still get a JSON error.
		var buf bytes.Buffer
		var ids []string
		if docID != "" {
			ids = []string{docID}
		}
		if err := s.exporter.WritePDF(ctx, &buf, ids...); err != nil {
			s.writeError(w, r, err)
			return
		}
		setDownload(w, format, name)
		_, _ = w.Write(buf.Bytes())
		return
	}

	setDownload(w, format, name)
	if err := export.Write(w, format, v); err != nil {
		s.logger.Error("export write failed", "error", err)
	}
}

func setDownload(w http.ResponseWriter, format export.Format, name string) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(name)+format.Extension()))
}

func pageParam(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid page number %q", errBadRequest, s)
	}
	return n, nil
}
