package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"

	"github.com/sessiondex/sessiondex/internal/bookmarks"
	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/ipc"
	"github.com/sessiondex/sessiondex/internal/query"
	"github.com/sessiondex/sessiondex/internal/store"
)

// handleChannel builds the HTTP handler for one IPC channel: decode the
// body as that channel's payload, dispatch to its implementation, write
// the response envelope, and record the outcome for metrics.
func (s *Server) handleChannel(channel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			ipc.RecordOutcome(channel, err)
			writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}

		resp, err := s.dispatch(channel, body)
		ipc.RecordOutcome(channel, err)
		if err != nil {
			writeChannelError(w, channel, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeChannelError(w http.ResponseWriter, channel string, err error) {
	if _, ok := err.(*ipc.ValidationError); ok {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "channel_failed", err.Error())
}

// Dispatch runs one channel call against the shared service/bookmark/
// runner state, independent of transport. The Unix-socket server
// (cmd/sessiondexd) calls this directly; the HTTP gateway calls it via
// handleChannel above.
func (s *Server) Dispatch(channel string, body []byte) (any, error) {
	return s.dispatch(channel, body)
}

func (s *Server) dispatch(channel string, body []byte) (any, error) {
	payload := json.RawMessage(body)
	switch channel {
	case ipc.ChannelAppGetHealth:
		return ipc.HealthResponse{Status: "ok", Version: Version}, nil
	case ipc.ChannelAppGetSettingsInfo:
		return s.settingsInfo(), nil
	case ipc.ChannelDBGetSchemaVersion:
		return ipc.SchemaVersionResponse{SchemaVersion: store.SchemaVersion}, nil
	case ipc.ChannelIndexerRefresh:
		return s.refresh(payload)
	case ipc.ChannelProjectsList:
		return s.projectsList(payload)
	case ipc.ChannelSessionsList:
		return s.sessionsList(payload)
	case ipc.ChannelSessionsGetDetail:
		return s.sessionsGetDetail(payload)
	case ipc.ChannelProjectsGetCombinedDetail:
		return s.projectsGetCombinedDetail(payload)
	case ipc.ChannelBookmarksListProject:
		return s.bookmarksListProject(payload)
	case ipc.ChannelBookmarksToggle:
		return s.bookmarksToggle(payload)
	case ipc.ChannelSearchQuery:
		return s.searchQuery(payload)
	case ipc.ChannelPathOpenInFileManager:
		return s.pathOpenInFileManager(payload)
	default:
		return nil, &ipc.IpcError{Message: "unknown channel " + channel}
	}
}

func (s *Server) settingsInfo() ipc.SettingsInfoResponse {
	dbFile := store.DefaultPath()
	if s.cfg.DataDir != "" {
		dbFile = filepath.Join(s.cfg.DataDir, "index.db")
	}
	return ipc.SettingsInfoResponse{
		Storage: ipc.SettingsStorage{
			DatabaseFile:          dbFile,
			BookmarksDatabaseFile: bookmarks.DefaultPath(dbFile),
			UserDataDir:           s.cfg.DataDir,
		},
		Discovery: ipc.SettingsDiscovery{
			ClaudeRoot:        s.cfg.Discovery.ClaudeRoot,
			CodexRoot:         s.cfg.Discovery.CodexRoot,
			GeminiRoot:        s.cfg.Discovery.GeminiRoot,
			GeminiHistoryRoot: s.cfg.Discovery.GeminiHistoryRoot,
		},
	}
}

func (s *Server) refresh(payload json.RawMessage) (any, error) {
	var req ipc.RefreshRequest
	if err := ipc.DecodeAndValidate(ipc.ChannelIndexerRefresh, payload, &req); err != nil {
		return nil, err
	}
	jobID, done := s.runner.Enqueue(req.Force)
	s.progress.Publish(ProgressEvent{JobID: jobID, Status: ProgressStarted})
	go func() {
		err := <-done
		event := ProgressEvent{JobID: jobID, Status: ProgressCompleted}
		if err != nil {
			event.Status = ProgressFailed
			event.Error = err.Error()
		}
		s.progress.Publish(event)
	}()
	return ipc.RefreshResponse{JobID: jobID}, nil
}

func (s *Server) projectsList(payload json.RawMessage) (any, error) {
	var req ipc.ProjectsListRequest
	if err := ipc.DecodeAndValidate(ipc.ChannelProjectsList, payload, &req); err != nil {
		return nil, err
	}
	var providers []canon.Provider
	if req.ProvidersSet {
		providers = req.Providers
		if providers == nil {
			providers = []canon.Provider{}
		}
	}
	projects, err := s.svc.ListProjects(providers, req.Query)
	if err != nil {
		return nil, &ipc.IpcError{Message: err.Error()}
	}
	out := make([]ipc.ProjectJSON, 0, len(projects))
	for _, p := range projects {
		out = append(out, ipc.ProjectJSON{
			ID: p.ID, Provider: p.Provider, Name: p.Name, Path: p.Path,
			SessionCount: p.SessionCount, LastActivity: p.LastActivity,
		})
	}
	return ipc.ProjectsListResponse{Projects: out}, nil
}

func (s *Server) sessionsList(payload json.RawMessage) (any, error) {
	var req ipc.SessionsListRequest
	if err := ipc.DecodeAndValidate(ipc.ChannelSessionsList, payload, &req); err != nil {
		return nil, err
	}
	sessions, err := s.svc.ListSessions(req.ProjectID)
	if err != nil {
		return nil, &ipc.IpcError{Message: err.Error()}
	}
	out := make([]ipc.SessionJSON, 0, len(sessions))
	for _, sm := range sessions {
		out = append(out, sessionJSON(sm))
	}
	return ipc.SessionsListResponse{Sessions: out}, nil
}

func (s *Server) sessionsGetDetail(payload json.RawMessage) (any, error) {
	var req ipc.DetailRequest
	if err := ipc.DecodeAndValidate(ipc.ChannelSessionsGetDetail, payload, &req); err != nil {
		return nil, err
	}
	result, err := s.svc.GetSessionDetail(detailParams(req))
	if err != nil {
		return nil, &ipc.IpcError{Message: err.Error()}
	}
	resp := detailResponse(result)
	if sm, err := s.svc.GetSession(req.SessionID); err == nil {
		sj := sessionJSON(sm)
		resp.Session = &sj
	}
	return resp, nil
}

func (s *Server) projectsGetCombinedDetail(payload json.RawMessage) (any, error) {
	var req ipc.DetailRequest
	if err := ipc.DecodeAndValidate(ipc.ChannelProjectsGetCombinedDetail, payload, &req); err != nil {
		return nil, err
	}
	result, err := s.svc.GetCombinedProjectDetail(detailParams(req))
	if err != nil {
		return nil, &ipc.IpcError{Message: err.Error()}
	}
	return detailResponse(result), nil
}

func detailParams(req ipc.DetailRequest) query.DetailParams {
	return query.DetailParams{
		SessionID:      req.SessionID,
		ProjectID:      req.ProjectID,
		Page:           req.Page,
		PageSize:       req.PageSize,
		SortDirection:  string(req.SortDirection),
		Categories:     req.Categories,
		CategoriesSet:  req.CategoriesSet,
		Query:          req.Query,
		FocusMessageID: req.FocusMessageID,
		FocusSourceID:  req.FocusSourceID,
	}
}

func detailResponse(result query.DetailResult) ipc.DetailResponse {
	messages := make([]ipc.MessageJSON, 0, len(result.Messages))
	for _, mv := range result.Messages {
		messages = append(messages, messageJSON(mv))
	}
	return ipc.DetailResponse{
		TotalCount:     result.TotalCount,
		CategoryCounts: result.CategoryCounts,
		Page:           result.Page,
		PageSize:       result.PageSize,
		FocusIndex:     result.FocusIndex,
		Messages:       messages,
	}
}

func messageJSON(mv query.MessageView) ipc.MessageJSON {
	var durSource, durConfidence *string
	if mv.OperationDurationSource != nil {
		durSource = mv.OperationDurationSource
	}
	if mv.OperationDurationConfidence != nil {
		durConfidence = mv.OperationDurationConfidence
	}
	return ipc.MessageJSON{
		ID: mv.ID, SourceID: mv.SourceID, SessionID: mv.SessionID,
		Provider: mv.Provider, Category: mv.Category, Content: mv.Content,
		CreatedAt:                   mv.CreatedAt,
		TokenInput:                  mv.TokenInput,
		TokenOutput:                 mv.TokenOutput,
		OperationDurationMs:         mv.OperationDurationMs,
		OperationDurationSource:     durSource,
		OperationDurationConfidence: durConfidence,
		SessionTitle:                mv.SessionTitle,
		SessionActivity:             mv.SessionActivity,
		GitBranch:                   mv.GitBranch,
		CWD:                         mv.CWD,
	}
}

func sessionJSON(sm query.SessionSummary) ipc.SessionJSON {
	return ipc.SessionJSON{
		ID: sm.ID, ProjectID: sm.ProjectID, Provider: sm.Provider, FilePath: sm.FilePath,
		ModelNames: sm.ModelNames, Title: sm.Title, StartedAt: sm.StartedAt, EndedAt: sm.EndedAt,
		DurationMs: sm.DurationMs, GitBranch: sm.GitBranch, CWD: sm.CWD,
		MessageCount: sm.MessageCount, TokenInputTotal: sm.TokenInputTotal, TokenOutputTotal: sm.TokenOutputTotal,
	}
}

func (s *Server) bookmarksListProject(payload json.RawMessage) (any, error) {
	var req ipc.BookmarksListProjectRequest
	if err := ipc.DecodeAndValidate(ipc.ChannelBookmarksListProject, payload, &req); err != nil {
		return nil, err
	}
	rows, err := s.bookmarks.ListProjectBookmarks(req.ProjectID, req.Query)
	if err != nil {
		return nil, &ipc.IpcError{Message: err.Error()}
	}

	// Join against live message rows: a live row whose session matches
	// the stored one supplies content and category; otherwise the stored
	// snapshot is surfaced and marked orphaned.
	for i := range rows {
		live, err := s.svc.GetMessage(rows[i].MessageID)
		if err != nil || live.SessionID != rows[i].SessionID {
			rows[i].IsOrphaned = true
			continue
		}
		rows[i].MessageContent = live.Content
		rows[i].MessageCategory = canon.Category(live.Category)
	}

	// Category facet counts ignore the categories filter, mirroring the
	// message-detail invariant.
	counts := map[string]int{}
	for _, row := range rows {
		counts[string(row.MessageCategory)]++
	}

	filtered := rows
	if req.CategoriesSet {
		allowed := map[canon.Category]bool{}
		for _, c := range req.Categories {
			if norm, ok := canon.NormalizeCategory(c); ok {
				allowed[norm] = true
			}
		}
		filtered = make([]bookmarks.BookmarkRow, 0, len(rows))
		for _, row := range rows {
			if allowed[row.MessageCategory] {
				filtered = append(filtered, row)
			}
		}
	}

	results := make([]ipc.BookmarkJSON, 0, len(filtered))
	for _, row := range filtered {
		results = append(results, ipc.BookmarkJSON{
			ProjectID: row.ProjectID, MessageID: row.MessageID, SessionID: row.SessionID,
			MessageSourceID: row.MessageSourceID, Provider: string(row.Provider),
			SessionTitle: row.SessionTitle, MessageCategory: string(row.MessageCategory),
			MessageContent: row.MessageContent, MessageCreatedAt: row.MessageCreated,
			BookmarkedAt: row.BookmarkedAt, IsOrphaned: row.IsOrphaned,
		})
	}

	return ipc.BookmarksListProjectResponse{
		ProjectID:      req.ProjectID,
		TotalCount:     len(rows),
		FilteredCount:  len(filtered),
		CategoryCounts: counts,
		Results:        results,
	}, nil
}

// bookmarksToggle requires the projectId/sessionId/messageId/
// messageSourceId quadruple to agree with the live row before recording
// anything: a caller holding a stale or mismatched scope must not be
// able to bookmark a message under the wrong project or session. Any
// missing row or mismatch answers {bookmarked:false} rather than an
// error, since from the caller's perspective the bookmark simply isn't
// there to toggle.
func (s *Server) bookmarksToggle(payload json.RawMessage) (any, error) {
	var req ipc.BookmarksToggleRequest
	if err := ipc.DecodeAndValidate(ipc.ChannelBookmarksToggle, payload, &req); err != nil {
		return nil, err
	}

	session, err := s.svc.GetSession(req.SessionID)
	if err != nil {
		return ipc.BookmarksToggleResponse{Bookmarked: false}, nil
	}
	msg, err := s.svc.GetMessage(req.MessageID)
	if err != nil {
		return ipc.BookmarksToggleResponse{Bookmarked: false}, nil
	}

	if msg.SessionID != req.SessionID || msg.SourceID != req.MessageSourceID || session.ProjectID != req.ProjectID {
		return ipc.BookmarksToggleResponse{Bookmarked: false}, nil
	}

	snap := bookmarks.Snapshot{
		ProjectID: req.ProjectID, MessageID: msg.ID, SessionID: req.SessionID,
		MessageSourceID: msg.SourceID, Provider: canon.Provider(msg.Provider),
		SessionTitle: session.Title, MessageCategory: canon.Category(msg.Category),
		MessageContent: msg.Content, MessageCreated: msg.CreatedAt,
	}
	bookmarked, err := s.bookmarks.ToggleBookmark(snap, store.Now())
	if err != nil {
		return nil, &ipc.IpcError{Message: err.Error()}
	}
	return ipc.BookmarksToggleResponse{Bookmarked: bookmarked}, nil
}

func (s *Server) searchQuery(payload json.RawMessage) (any, error) {
	var req ipc.SearchQueryRequest
	if err := ipc.DecodeAndValidate(ipc.ChannelSearchQuery, payload, &req); err != nil {
		return nil, err
	}
	result, err := s.svc.Search(query.SearchParams{
		Query: req.Query, Categories: req.Categories, CategoriesSet: req.CategoriesSet,
		Providers: req.Providers, ProjectIDs: req.ProjectIDs, ProjectQuery: req.ProjectQuery,
		Limit: req.Limit, Offset: req.Offset,
	})
	if err != nil {
		return nil, &ipc.IpcError{Message: err.Error()}
	}
	hits := make([]ipc.SearchHitJSON, 0, len(result.Results))
	for _, hit := range result.Results {
		hits = append(hits, ipc.SearchHitJSON{MessageJSON: messageJSON(hit.MessageView), Snippet: hit.Snippet})
	}
	return ipc.SearchQueryResponse{
		Query: result.Query, TotalCount: result.TotalCount,
		CategoryCounts: result.CategoryCounts, Results: hits,
	}, nil
}

func (s *Server) pathOpenInFileManager(payload json.RawMessage) (any, error) {
	var req ipc.PathOpenInFileManagerRequest
	if err := ipc.DecodeAndValidate(ipc.ChannelPathOpenInFileManager, payload, &req); err != nil {
		return nil, err
	}
	if err := openInFileManager(req.Path); err != nil {
		return ipc.PathOpenInFileManagerResponse{OK: false, Error: err.Error()}, nil
	}
	return ipc.PathOpenInFileManagerResponse{OK: true}, nil
}

