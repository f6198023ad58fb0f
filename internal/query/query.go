// Package query serves the read-side project/session/search contracts
// against the index database: projects:list, sessions:list,
// sessions:getDetail, projects:getCombinedDetail, search:query.
package query

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/metrics"
	"github.com/sessiondex/sessiondex/internal/store"
)

// timeQuery starts a timer for the named channel; the returned func
// records its duration against QueryDurationSeconds when deferred.
func timeQuery(channel string) func() {
	start := time.Now()
	return func() {
		metrics.QueryDurationSeconds.WithLabelValues(channel).Observe(time.Since(start).Seconds())
	}
}

// Service answers read queries against one index database connection.
// The connection is expected to be long-lived; Close is idempotent.
type Service struct {
	db *store.DB
}

// NewService wraps an already-open index database.
func NewService(db *store.DB) *Service {
	return &Service{db: db}
}

// Close closes the underlying connection. Safe to call more than once.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ProjectSummary is one row of projects:list.
type ProjectSummary struct {
	ID           string
	Provider     string
	Name         string
	Path         string
	SessionCount int
	LastActivity string
}

// ListProjects implements projects:list. An explicit empty providers
// slice (as opposed to nil) returns no projects, mirroring the
// providers=[] short-circuit.
func (s *Service) ListProjects(providers []canon.Provider, query string) ([]ProjectSummary, error) {
	defer timeQuery("projects:list")()
	if providers != nil && len(providers) == 0 {
		return []ProjectSummary{}, nil
	}

	sqlStr := `
		SELECT p.id, p.provider, p.name, p.path,
		       count(s.id) AS session_count,
		       max(coalesce(s.ended_at, s.started_at)) AS last_activity
		FROM projects p
		LEFT JOIN sessions s ON s.project_id = p.id
		WHERE 1=1`
	var args []any

	if len(providers) > 0 {
		sqlStr += " AND p.provider IN (" + placeholders(len(providers)) + ")"
		for _, p := range providers {
			args = append(args, string(p))
		}
	}
	query = strings.TrimSpace(query)
	if query != "" {
		sqlStr += " AND (lower(p.name) LIKE ? OR lower(p.path) LIKE ?)"
		like := "%" + strings.ToLower(query) + "%"
		args = append(args, like, like)
	}
	sqlStr += " GROUP BY p.id ORDER BY p.provider, lower(p.name), p.id"

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query: list projects: %w", err)
	}
	defer rows.Close()

	out := []ProjectSummary{}
	for rows.Next() {
		var p ProjectSummary
		var lastActivity sql.NullString
		if err := rows.Scan(&p.ID, &p.Provider, &p.Name, &p.Path, &p.SessionCount, &lastActivity); err != nil {
			return nil, err
		}
		p.LastActivity = lastActivity.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// SessionSummary is one row of sessions:list.
type SessionSummary struct {
	ID               string
	ProjectID        string
	Provider         string
	FilePath         string
	ModelNames       string
	Title            string
	StartedAt        string
	EndedAt          string
	DurationMs       *int64
	GitBranch        string
	CWD              string
	MessageCount     int
	TokenInputTotal  int
	TokenOutputTotal int
}

// ListSessions implements sessions:list. An empty projectId lists every
// session across every project.
func (s *Service) ListSessions(projectID string) ([]SessionSummary, error) {
	defer timeQuery("sessions:list")()
	sqlStr := `
		SELECT s.id, s.project_id, s.provider, s.file_path, s.model_names,
		       s.started_at, s.ended_at, s.duration_ms, s.git_branch, s.cwd,
		       s.message_count, s.token_input_total, s.token_output_total
		FROM sessions s
		WHERE 1=1`
	var args []any
	if projectID != "" {
		sqlStr += " AND s.project_id = ?"
		args = append(args, projectID)
	}
	sqlStr += " ORDER BY coalesce(s.ended_at, s.started_at) DESC, s.id DESC"

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query: list sessions: %w", err)
	}
	defer rows.Close()

	out := []SessionSummary{}
	for rows.Next() {
		var sm SessionSummary
		var startedAt, endedAt, gitBranch, cwd sql.NullString
		var durationMs sql.NullInt64
		if err := rows.Scan(&sm.ID, &sm.ProjectID, &sm.Provider, &sm.FilePath, &sm.ModelNames,
			&startedAt, &endedAt, &durationMs, &gitBranch, &cwd,
			&sm.MessageCount, &sm.TokenInputTotal, &sm.TokenOutputTotal); err != nil {
			return nil, err
		}
		sm.StartedAt, sm.EndedAt, sm.GitBranch, sm.CWD = startedAt.String, endedAt.String, gitBranch.String, cwd.String
		if durationMs.Valid {
			v := durationMs.Int64
			sm.DurationMs = &v
		}
		out = append(out, sm)
	}
	for i := range out {
		title, err := s.sessionTitle(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Title = title
	}
	return out, rows.Err()
}

// GetSession fetches one session's summary row, for callers (such as
// sessions:getDetail) that need session metadata alongside a page of
// messages.
func (s *Service) GetSession(sessionID string) (SessionSummary, error) {
	var sm SessionSummary
	var startedAt, endedAt, gitBranch, cwd sql.NullString
	var durationMs sql.NullInt64
	err := s.db.QueryRow(
		`SELECT s.id, s.project_id, s.provider, s.file_path, s.model_names,
		        s.started_at, s.ended_at, s.duration_ms, s.git_branch, s.cwd,
		        s.message_count, s.token_input_total, s.token_output_total
		 FROM sessions s WHERE s.id = ?`, sessionID).
		Scan(&sm.ID, &sm.ProjectID, &sm.Provider, &sm.FilePath, &sm.ModelNames,
			&startedAt, &endedAt, &durationMs, &gitBranch, &cwd,
			&sm.MessageCount, &sm.TokenInputTotal, &sm.TokenOutputTotal)
	if err != nil {
		return SessionSummary{}, err
	}
	sm.StartedAt, sm.EndedAt, sm.GitBranch, sm.CWD = startedAt.String, endedAt.String, gitBranch.String, cwd.String
	if durationMs.Valid {
		v := durationMs.Int64
		sm.DurationMs = &v
	}
	title, err := s.sessionTitle(sm.ID)
	if err != nil {
		return SessionSummary{}, err
	}
	sm.Title = title
	return sm, nil
}

// sessionTitle picks the first message by priority user -> assistant ->
// any, tiebroken by created_at asc, id asc.
func (s *Service) sessionTitle(sessionID string) (string, error) {
	for _, categoryFilter := range []string{
		"category = 'user'",
		"category = 'assistant'",
		"1=1",
	} {
		var content string
		err := s.db.QueryRow(
			`SELECT content FROM messages WHERE session_id = ? AND `+categoryFilter+
				` ORDER BY created_at ASC, id ASC LIMIT 1`, sessionID).Scan(&content)
		if err == nil {
			return content, nil
		}
		if err != sql.ErrNoRows {
			return "", err
		}
	}
	return "", nil
}

// MessageView is one message row as returned by session/project detail
// and search queries, optionally enriched with its owning session's
// summary fields.
type MessageView struct {
	ID                          string
	SourceID                    string
	SessionID                   string
	Provider                    string
	Category                    string
	Content                     string
	CreatedAt                   string
	TokenInput                  *int
	TokenOutput                 *int
	OperationDurationMs         *int64
	OperationDurationSource     *string
	OperationDurationConfidence *string

	SessionTitle    string
	SessionActivity string
	GitBranch       string
	CWD             string
}

// DetailParams parametrizes sessions:getDetail and
// projects:getCombinedDetail.
type DetailParams struct {
	SessionID     string // set for sessions:getDetail
	ProjectID     string // set for projects:getCombinedDetail
	Page          int
	PageSize      int
	SortDirection string // "asc" | "desc"
	Categories    []canon.Category
	CategoriesSet bool // distinguishes nil (all) from an explicit empty slice (none)
	Query         string

	FocusMessageID  string
	FocusSourceID   string
}

// DetailResult is the shared shape of sessions:getDetail and
// projects:getCombinedDetail.
type DetailResult struct {
	TotalCount     int
	CategoryCounts map[string]int
	Page           int
	PageSize       int
	FocusIndex     *int
	Messages       []MessageView
}

// GetSessionDetail implements sessions:getDetail.
func (s *Service) GetSessionDetail(p DetailParams) (DetailResult, error) {
	defer timeQuery("sessions:getDetail")()
	return s.getDetail(p, false)
}

// GetCombinedProjectDetail implements projects:getCombinedDetail.
func (s *Service) GetCombinedProjectDetail(p DetailParams) (DetailResult, error) {
	defer timeQuery("projects:getCombinedDetail")()
	return s.getDetail(p, true)
}

func (s *Service) getDetail(p DetailParams, byProject bool) (DetailResult, error) {
	if p.PageSize <= 0 {
		p.PageSize = 50
	}
	asc := !strings.EqualFold(p.SortDirection, "desc")

	scopeCol := "m.session_id"
	scopeVal := p.SessionID
	if byProject {
		scopeCol = "s.project_id"
		scopeVal = p.ProjectID
	}

	baseWhere, baseArgs := buildContentFilter(p.Query)
	baseWhere = append([]string{scopeCol + " = ?"}, baseWhere...)
	baseArgs = append([]any{scopeVal}, baseArgs...)

	categoryWhere, categoryArgs := buildCategoryFilter(p.Categories, p.CategoriesSet)

	from := "FROM messages m JOIN sessions s ON s.id = m.session_id"

	// Facet counts ignore the category filter (P9).
	counts, err := s.categoryCounts(from, baseWhere, baseArgs)
	if err != nil {
		return DetailResult{}, err
	}

	filteredWhere := append(append([]string{}, baseWhere...), categoryWhere...)
	filteredArgs := append(append([]any{}, baseArgs...), categoryArgs...)

	var totalCount int
	countSQL := "SELECT count(*) " + from + whereClause(filteredWhere)
	if err := s.db.QueryRow(countSQL, filteredArgs...).Scan(&totalCount); err != nil {
		return DetailResult{}, fmt.Errorf("query: count detail: %w", err)
	}

	var focusIndex *int
	if p.FocusMessageID != "" || p.FocusSourceID != "" {
		idx, err := s.resolveFocusIndex(from, filteredWhere, filteredArgs, p, asc)
		if err != nil {
			return DetailResult{}, err
		}
		if idx != nil {
			p.Page = int(math.Floor(float64(*idx) / float64(p.PageSize)))
			focusIndex = idx
		}
	}
	if totalCount > 0 {
		maxPage := (totalCount - 1) / p.PageSize
		if p.Page > maxPage {
			p.Page = maxPage
		}
	}
	if p.Page < 0 {
		p.Page = 0
	}

	order := "ASC"
	if !asc {
		order = "DESC"
	}
	pageSQL := fmt.Sprintf(
		`SELECT m.id, m.source_id, m.session_id, m.provider, m.category, m.content, m.created_at,
		        m.token_input, m.token_output, m.operation_duration_ms, m.operation_duration_source, m.operation_duration_confidence,
		        s.git_branch, s.cwd
		 %s%s
		 ORDER BY m.created_at %s, m.id %s
		 LIMIT ? OFFSET ?`, from, whereClause(filteredWhere), order, order)
	args := append(append([]any{}, filteredArgs...), p.PageSize, p.Page*p.PageSize)

	rows, err := s.db.Query(pageSQL, args...)
	if err != nil {
		return DetailResult{}, fmt.Errorf("query: page detail: %w", err)
	}
	defer rows.Close()

	messages := []MessageView{}
	for rows.Next() {
		mv, err := scanMessageView(rows)
		if err != nil {
			return DetailResult{}, err
		}
		messages = append(messages, mv)
	}
	if err := rows.Err(); err != nil {
		return DetailResult{}, err
	}

	if byProject {
		for i := range messages {
			title, err := s.sessionTitle(messages[i].SessionID)
			if err != nil {
				return DetailResult{}, err
			}
			messages[i].SessionTitle = title
		}
	}

	return DetailResult{
		TotalCount:     totalCount,
		CategoryCounts: counts,
		Page:           p.Page,
		PageSize:       p.PageSize,
		FocusIndex:     focusIndex,
		Messages:       messages,
	}, nil
}

func (s *Service) resolveFocusIndex(from string, filteredWhere []string, filteredArgs []any, p DetailParams, asc bool) (*int, error) {
	var createdAt, id string
	var err error
	if p.FocusMessageID != "" {
		err = s.db.QueryRow("SELECT created_at, id FROM messages WHERE id = ?", p.FocusMessageID).Scan(&createdAt, &id)
	} else {
		err = s.db.QueryRow("SELECT created_at, id FROM messages WHERE source_id = ?", p.FocusSourceID).Scan(&createdAt, &id)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query: resolve focus: %w", err)
	}

	var precedeClause string
	if asc {
		precedeClause = "(m.created_at < ? OR (m.created_at = ? AND m.id <= ?))"
	} else {
		precedeClause = "(m.created_at > ? OR (m.created_at = ? AND m.id >= ?))"
	}
	where := append(append([]string{}, filteredWhere...), precedeClause)
	args := append(append([]any{}, filteredArgs...), createdAt, createdAt, id)

	var count int
	countSQL := "SELECT count(*) " + from + whereClause(where)
	if err := s.db.QueryRow(countSQL, args...).Scan(&count); err != nil {
		return nil, fmt.Errorf("query: count focus precede: %w", err)
	}
	if count < 1 {
		return nil, nil
	}
	idx := count - 1
	return &idx, nil
}

func (s *Service) categoryCounts(from string, where []string, args []any) (map[string]int, error) {
	sqlStr := "SELECT m.category, count(*) " + from + whereClause(where) + " GROUP BY m.category"
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query: category counts: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		out[cat] = n
	}
	return out, rows.Err()
}

func scanMessageView(rows *sql.Rows) (MessageView, error) {
	var mv MessageView
	var tokenInput, tokenOutput sql.NullInt64
	var durationMs sql.NullInt64
	var durationSource, durationConfidence, gitBranch, cwd sql.NullString
	if err := rows.Scan(&mv.ID, &mv.SourceID, &mv.SessionID, &mv.Provider, &mv.Category, &mv.Content, &mv.CreatedAt,
		&tokenInput, &tokenOutput, &durationMs, &durationSource, &durationConfidence, &gitBranch, &cwd); err != nil {
		return mv, err
	}
	if tokenInput.Valid {
		v := int(tokenInput.Int64)
		mv.TokenInput = &v
	}
	if tokenOutput.Valid {
		v := int(tokenOutput.Int64)
		mv.TokenOutput = &v
	}
	if durationMs.Valid {
		v := durationMs.Int64
		mv.OperationDurationMs = &v
	}
	if durationSource.Valid {
		v := durationSource.String
		mv.OperationDurationSource = &v
	}
	if durationConfidence.Valid {
		v := durationConfidence.String
		mv.OperationDurationConfidence = &v
	}
	mv.GitBranch = gitBranch.String
	mv.CWD = cwd.String
	return mv, nil
}

// GetMessage fetches one message by id, joined against its session's
// git_branch/cwd, for callers (such as bookmarks:toggle) that need a
// single message's canonical fields rather than a page of them.
func (s *Service) GetMessage(messageID string) (MessageView, error) {
	row := s.db.QueryRow(
		`SELECT m.id, m.source_id, m.session_id, m.provider, m.category, m.content, m.created_at,
		        m.token_input, m.token_output, m.operation_duration_ms, m.operation_duration_source, m.operation_duration_confidence,
		        s.git_branch, s.cwd
		 FROM messages m JOIN sessions s ON s.id = m.session_id
		 WHERE m.id = ?`, messageID)
	return scanMessageViewRow(row)
}

func scanMessageViewRow(row *sql.Row) (MessageView, error) {
	var mv MessageView
	var tokenInput, tokenOutput sql.NullInt64
	var durationMs sql.NullInt64
	var durationSource, durationConfidence, gitBranch, cwd sql.NullString
	if err := row.Scan(&mv.ID, &mv.SourceID, &mv.SessionID, &mv.Provider, &mv.Category, &mv.Content, &mv.CreatedAt,
		&tokenInput, &tokenOutput, &durationMs, &durationSource, &durationConfidence, &gitBranch, &cwd); err != nil {
		return mv, err
	}
	if tokenInput.Valid {
		v := int(tokenInput.Int64)
		mv.TokenInput = &v
	}
	if tokenOutput.Valid {
		v := int(tokenOutput.Int64)
		mv.TokenOutput = &v
	}
	if durationMs.Valid {
		v := durationMs.Int64
		mv.OperationDurationMs = &v
	}
	if durationSource.Valid {
		v := durationSource.String
		mv.OperationDurationSource = &v
	}
	if durationConfidence.Valid {
		v := durationConfidence.String
		mv.OperationDurationConfidence = &v
	}
	mv.GitBranch = gitBranch.String
	mv.CWD = cwd.String
	return mv, nil
}

func buildContentFilter(query string) ([]string, []any) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return []string{"lower(m.content) LIKE ?"}, []any{"%" + strings.ToLower(query) + "%"}
}

// buildCategoryFilter returns the WHERE fragments for a categories
// filter: set==false means "all categories" (no fragment); set==true
// with an empty slice means "no categories" (an always-false fragment).
func buildCategoryFilter(categories []canon.Category, set bool) ([]string, []any) {
	if !set {
		return nil, nil
	}
	if len(categories) == 0 {
		return []string{"1=0"}, nil
	}
	args := make([]any, len(categories))
	for i, c := range categories {
		args[i] = string(c)
	}
	return []string{"m.category IN (" + placeholders(len(categories)) + ")"}, args
}

func whereClause(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// SearchParams parametrizes search:query.
type SearchParams struct {
	Query        string
	Categories   []canon.Category
	CategoriesSet bool
	Providers    []canon.Provider
	ProjectIDs   []string
	ProjectQuery string
	Limit        int
	Offset       int
}

// SearchResult is the shape of search:query.
type SearchResult struct {
	Query          string
	TotalCount     int
	CategoryCounts map[string]int
	Results        []SearchHit
}

// SearchHit is one search:query match, with a highlighted snippet.
type SearchHit struct {
	MessageView
	Snippet string
}

// Search implements search:query. An empty query returns a
// zero-shaped, empty result without touching the FTS index.
func (s *Service) Search(p SearchParams) (SearchResult, error) {
	defer timeQuery("search:query")()
	if strings.TrimSpace(p.Query) == "" {
		return SearchResult{Query: p.Query, CategoryCounts: map[string]int{}, Results: []SearchHit{}}, nil
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}

	ftsQuery := EscapeFTSQuery(p.Query)

	from := `FROM message_fts
		JOIN messages m ON m.id = message_fts.message_id
		JOIN sessions s ON s.id = m.session_id
		LEFT JOIN projects pr ON pr.id = s.project_id`
	where := []string{"message_fts MATCH ?"}
	args := []any{ftsQuery}

	if len(p.Providers) > 0 {
		where = append(where, "m.provider IN ("+placeholders(len(p.Providers))+")")
		for _, pv := range p.Providers {
			args = append(args, string(pv))
		}
	}
	if len(p.ProjectIDs) > 0 {
		where = append(where, "s.project_id IN ("+placeholders(len(p.ProjectIDs))+")")
		for _, id := range p.ProjectIDs {
			args = append(args, id)
		}
	}
	if q := strings.TrimSpace(p.ProjectQuery); q != "" {
		where = append(where, "(lower(pr.name) LIKE ? OR lower(pr.path) LIKE ?)")
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like)
	}

	counts, err := s.categoryCountsFTS(from, where, args)
	if err != nil {
		return SearchResult{}, err
	}

	categoryWhere, categoryArgs := buildCategoryFilter(p.Categories, p.CategoriesSet)
	filteredWhere := append(append([]string{}, where...), categoryWhere...)
	filteredArgs := append(append([]any{}, args...), categoryArgs...)

	var total int
	countSQL := "SELECT count(*) " + from + whereClause(filteredWhere)
	if err := s.db.QueryRow(countSQL, filteredArgs...).Scan(&total); err != nil {
		return SearchResult{}, fmt.Errorf("query: search count: %w", err)
	}

	pageSQL := fmt.Sprintf(
		`SELECT m.id, m.source_id, m.session_id, m.provider, m.category, m.content, m.created_at,
		        m.token_input, m.token_output, m.operation_duration_ms, m.operation_duration_source, m.operation_duration_confidence,
		        s.git_branch, s.cwd,
		        snippet(message_fts, 4, '<mark>', '</mark>', '...', 32)
		 %s%s
		 ORDER BY bm25(message_fts) ASC
		 LIMIT ? OFFSET ?`, from, whereClause(filteredWhere))
	pageArgs := append(append([]any{}, filteredArgs...), p.Limit, p.Offset)

	rows, err := s.db.Query(pageSQL, pageArgs...)
	if err != nil {
		return SearchResult{}, fmt.Errorf("query: search page: %w", err)
	}
	defer rows.Close()

	results := []SearchHit{}
	for rows.Next() {
		var hit SearchHit
		var tokenInput, tokenOutput, durationMs sql.NullInt64
		var durationSource, durationConfidence, gitBranch, cwd sql.NullString
		if err := rows.Scan(&hit.ID, &hit.SourceID, &hit.SessionID, &hit.Provider, &hit.Category, &hit.Content, &hit.CreatedAt,
			&tokenInput, &tokenOutput, &durationMs, &durationSource, &durationConfidence, &gitBranch, &cwd, &hit.Snippet); err != nil {
			return SearchResult{}, err
		}
		if tokenInput.Valid {
			v := int(tokenInput.Int64)
			hit.TokenInput = &v
		}
		if tokenOutput.Valid {
			v := int(tokenOutput.Int64)
			hit.TokenOutput = &v
		}
		if durationMs.Valid {
			v := durationMs.Int64
			hit.OperationDurationMs = &v
		}
		if durationSource.Valid {
			v := durationSource.String
			hit.OperationDurationSource = &v
		}
		if durationConfidence.Valid {
			v := durationConfidence.String
			hit.OperationDurationConfidence = &v
		}
		hit.GitBranch, hit.CWD = gitBranch.String, cwd.String
		results = append(results, hit)
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, err
	}

	return SearchResult{
		Query:          p.Query,
		TotalCount:     total,
		CategoryCounts: counts,
		Results:        results,
	}, nil
}

func (s *Service) categoryCountsFTS(from string, where []string, args []any) (map[string]int, error) {
	sqlStr := "SELECT m.category, count(*) " + from + whereClause(where) + " GROUP BY m.category"
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query: search category counts: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		out[cat] = n
	}
	return out, rows.Err()
}

// EscapeFTSQuery turns a free-text query into an FTS5 phrase-per-term
// expression, so stray syntax characters (an unbalanced quote, a
// leading hyphen) never raise an FTS5 syntax error (P11): split on
// whitespace, wrap each term in double quotes, and escape any inner
// quote by doubling it.
func EscapeFTSQuery(query string) string {
	terms := strings.Fields(query)
	escaped := make([]string, 0, len(terms))
	for _, t := range terms {
		escaped = append(escaped, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(escaped, " ")
}
