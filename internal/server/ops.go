package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dtnitsch/layout-editor/internal/common"
	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/db"
	"github.com/dtnitsch/layout-editor/pkg/editor"
)

// opRequest carries the arguments of every session operation; each op reads
// only the fields it needs.
type opRequest struct {
	ID        editor.BoxID   `json:"id"`
	IDs       []editor.BoxID `json:"ids"`
	Mode      string         `json:"mode"`
	Handle    string         `json:"handle"`
	DX        float64        `json:"dx"`
	DY        float64        `json:"dy"`
	Category  string         `json:"category"`
	Text      *string        `json:"text"`
	GroupID   editor.GroupID `json:"group_id"`
	Validated *bool          `json:"validated"`
}

func (s *Server) handleOp(w http.ResponseWriter, r *http.Request) {
	ls, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req opRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	resp, err := s.applyOp(r, ls, r.PathValue("op"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp.SessionID = ls.id
	resp.Page = ls.page
	resp.Session = ls.session.Snapshot()
	writeJSON(w, http.StatusOK, resp)
}

// applyOp runs one operation against a locked session.
func (s *Server) applyOp(r *http.Request, ls *liveSession, op string, req opRequest) (sessionResponse, error) {
	var resp sessionResponse
	sess := ls.session
	ctx := r.Context()

	switch op {
	case "select":
		mode, err := editor.ParseSelectMode(req.Mode)
		if err != nil {
			return resp, err
		}
		sess.Select(req.ID, mode)

	case "move":
		resp.Changed = boolPtr(sess.Move(req.ID, req.DX, req.DY))

	case "resize":
		handle, err := editor.ParseHandle(req.Handle)
		if err != nil {
			return resp, err
		}
		changed, err := sess.Resize(req.ID, handle, req.DX, req.DY)
		if err != nil {
			return resp, err
		}
		resp.Changed = &changed

	case "reorder":
		if err := sess.Reorder(req.IDs); err != nil {
			return resp, err
		}

	case "category":
		if err := sess.SetCategory(req.ID, models.Category(req.Category)); err != nil {
			return resp, err
		}

	case "text":
		if req.Text == nil {
			return resp, fmt.Errorf("%w: text is required", editor.ErrInvalidInput)
		}
		if err := sess.SetText(req.ID, *req.Text); err != nil {
			return resp, err
		}

	case "group":
		gid, err := sess.Group(req.IDs)
		if err != nil {
			return resp, err
		}
		resp.GroupID = gid

	case "ungroup":
		resp.Changed = boolPtr(sess.Ungroup(req.GroupID))

	case "delete":
		ids := req.IDs
		if len(ids) == 0 {
			ids = sess.Selection()
		}
		n := sess.Delete(ids)
		resp.Deleted = &n

	case "save":
		if err := sess.Save(ctx); err != nil {
			s.logger.Error("save failed", "session", ls.id, "page", sess.Key().String(), "error", err)
			return resp, err
		}

	case "validate":
		validated := req.Validated == nil || *req.Validated
		if err := sess.MarkValidated(ctx, validated); err != nil {
			s.logger.Error("validate failed", "session", ls.id, "page", sess.Key().String(), "error", err)
			return resp, err
		}

	case "reset":
		key := sess.Key()
		page, fresh, err := s.openOriginal(ctx, key.DocID, key.PageNo)
		if err != nil {
			return resp, err
		}
		if err := s.store.DeletePage(ctx, key.DocID, key.PageNo); err != nil && !errors.Is(err, db.ErrPageNotFound) {
			return resp, err
		}
		ls.page, ls.session = page, fresh
		s.logger.Info("reset page to original", "session", ls.id, "page", key.String())

	default:
		return resp, fmt.Errorf("%w: unknown operation %q", errBadRequest, op)
	}
	return resp, nil
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// unchanged.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOpBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }

// downloadName turns a document id into a file name.
func downloadName(name string) string {
	name = common.SanitizeFilename(strings.ReplaceAll(name, "/", "_"))
	if name == "" {
		return "export"
	}
	return name
}
