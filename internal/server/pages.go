package server

import (
	"bytes"
	"net/http"

	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/catalog"
)

type documentView struct {
	catalog.DocumentInfo
	Pages     []pageSummary
	Validated int
}

type indexView struct {
	Documents []documentView
	Folders   []string
}

type editorView struct {
	DocID      string
	PageNo     int
	Categories []models.Category
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	docs, err := s.catalog.ListDocuments()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view := indexView{}
	seen := make(map[string]bool)
	for _, d := range docs {
		pages, err := s.pageSummaries(r.Context(), d.DocID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		dv := documentView{DocumentInfo: d, Pages: pages}
		for _, p := range pages {
			if p.Validated {
				dv.Validated++
			}
		}
		view.Documents = append(view.Documents, dv)
		if !seen[d.Folder] {
			seen[d.Folder] = true
			view.Folders = append(view.Folders, d.Folder)
		}
	}
	s.render(w, r, "index.html", view)
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
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
	s.render(w, r, "editor.html", editorView{DocID: page.DocID, PageNo: page.PageNo, Categories: models.Categories})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// percent is n/total as a whole percentage.
func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return n * 100 / total
}
