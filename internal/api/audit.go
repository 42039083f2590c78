package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/gea-bridge/internal/audit"
)

// auditChanSize bounds the queue of pending audit entries. Entries beyond
// it are dropped so a slow database never stalls a write request.
const auditChanSize = 256

// auditWrite enqueues the outcome of a user write.
func (s *Server) auditWrite(device, uid string, value any, writeErr error) {
	if s.auditRepo == nil || s.auditCh == nil {
		return
	}

	entry := &audit.Entry{
		Action:   audit.ActionEntityWrite,
		Device:   device,
		UniqueID: uid,
		Source:   "api",
		Value:    value,
	}
	if writeErr != nil {
		entry.Action = audit.ActionWriteFailed
		entry.Error = writeErr.Error()
	}

	select {
	case s.auditCh <- entry:
	default:
		s.logger.Warn("audit queue full, dropping entry", "unique_id", uid)
	}
}

// drainAudit writes queued entries serially until ctx is cancelled, then
// flushes what is left.
func (s *Server) drainAudit(ctx context.Context) {
	defer close(s.auditDone)
	for {
		select {
		case entry := <-s.auditCh:
			s.writeAudit(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-s.auditCh:
					s.writeAudit(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) writeAudit(entry *audit.Entry) {
	if err := s.auditRepo.Create(context.Background(), entry); err != nil {
		s.logger.Error("audit write failed", "unique_id", entry.UniqueID, "error", err)
	}
}

// handleListAudit returns audit entries, newest first.
//
// Query parameters:
//   - action, device, unique_id: exact-match filters
//   - limit: default 50, max 200
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:   q.Get("action"),
		Device:   q.Get("device"),
		UniqueID: q.Get("unique_id"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
