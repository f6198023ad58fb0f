// Package ipc defines sessiondex's fixed request/response channel
// catalog: one validated contract per channel, shared verbatim by the
// Unix-socket server and the HTTP gateway.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/sessiondex/sessiondex/internal/canon"
)

// Channel names, exactly as they appear on the wire.
const (
	ChannelAppGetHealth               = "app:getHealth"
	ChannelAppGetSettingsInfo         = "app:getSettingsInfo"
	ChannelDBGetSchemaVersion         = "db:getSchemaVersion"
	ChannelIndexerRefresh             = "indexer:refresh"
	ChannelProjectsList               = "projects:list"
	ChannelSessionsList               = "sessions:list"
	ChannelSessionsGetDetail          = "sessions:getDetail"
	ChannelProjectsGetCombinedDetail  = "projects:getCombinedDetail"
	ChannelBookmarksListProject       = "bookmarks:listProject"
	ChannelBookmarksToggle            = "bookmarks:toggle"
	ChannelSearchQuery                = "search:query"
	ChannelPathOpenInFileManager      = "path:openInFileManager"
)

// Request is the envelope carried over the wire transport (Unix socket
// or HTTP body): a channel name plus its opaque, channel-specific
// payload.
type Request struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the envelope returned for a successful call.
type Response struct {
	Payload json.RawMessage `json:"payload"`
}

// IpcError is returned instead of a Response when a channel handler
// fails for a reason other than request validation.
type IpcError struct {
	Message string `json:"error"`
}

func (e *IpcError) Error() string { return e.Message }

// ValidationError is returned when a request payload fails a channel's
// validation rules, distinct from any other error class (spec §7).
type ValidationError struct {
	Channel string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ipc: invalid %s request: %s", e.Channel, e.Message)
}

// Known channel names, for catalog enumeration (e.g. the HTTP gateway's
// route table).
var Channels = []string{
	ChannelAppGetHealth,
	ChannelAppGetSettingsInfo,
	ChannelDBGetSchemaVersion,
	ChannelIndexerRefresh,
	ChannelProjectsList,
	ChannelSessionsList,
	ChannelSessionsGetDetail,
	ChannelProjectsGetCombinedDetail,
	ChannelBookmarksListProject,
	ChannelBookmarksToggle,
	ChannelSearchQuery,
	ChannelPathOpenInFileManager,
}

// --- Request/response payload shapes -------------------------------------

// HealthResponse answers app:getHealth.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// SettingsStorage is the storage section of app:getSettingsInfo.
type SettingsStorage struct {
	SettingsFile          string `json:"settingsFile"`
	CacheDir              string `json:"cacheDir"`
	DatabaseFile          string `json:"databaseFile"`
	BookmarksDatabaseFile string `json:"bookmarksDatabaseFile"`
	UserDataDir           string `json:"userDataDir"`
}

// SettingsDiscovery is the discovery section of app:getSettingsInfo.
type SettingsDiscovery struct {
	ClaudeRoot        string `json:"claudeRoot"`
	CodexRoot         string `json:"codexRoot"`
	GeminiRoot        string `json:"geminiRoot"`
	GeminiHistoryRoot string `json:"geminiHistoryRoot"`
	GeminiProjectsPath string `json:"geminiProjectsPath"`
}

// SettingsInfoResponse answers app:getSettingsInfo.
type SettingsInfoResponse struct {
	Storage   SettingsStorage   `json:"storage"`
	Discovery SettingsDiscovery `json:"discovery"`
}

// SchemaVersionResponse answers db:getSchemaVersion.
type SchemaVersionResponse struct {
	SchemaVersion int `json:"schemaVersion"`
}

// RefreshRequest is the indexer:refresh request payload.
type RefreshRequest struct {
	Force bool `json:"force"`
}

// Validate enforces RefreshRequest's (trivial) shape.
func (r RefreshRequest) Validate() error { return nil }

// RefreshResponse answers indexer:refresh.
type RefreshResponse struct {
	JobID string `json:"jobId"`
}

// ProjectsListRequest is the projects:list request payload. Providers
// is a pointer-like nil-vs-empty distinction: nil means "unset" (no
// filter), a non-nil empty slice means "match nothing".
type ProjectsListRequest struct {
	Providers    []canon.Provider `json:"providers,omitempty"`
	ProvidersSet bool             `json:"-"`
	Query        string           `json:"query"`
}

// UnmarshalJSON records whether "providers" was present in the payload
// at all, distinguishing an omitted key (no filter) from an explicit
// empty array (match nothing).
func (r *ProjectsListRequest) UnmarshalJSON(data []byte) error {
	type shadow ProjectsListRequest
	if err := json.Unmarshal(data, (*shadow)(r)); err != nil {
		return err
	}
	r.ProvidersSet = keyPresent(data, "providers")
	return nil
}

// Validate checks every named provider is one of the three known ones.
func (r ProjectsListRequest) Validate() error {
	for _, p := range r.Providers {
		if !p.Valid() {
			return fmt.Errorf("unknown provider %q", p)
		}
	}
	return nil
}

// SessionsListRequest is the sessions:list request payload.
type SessionsListRequest struct {
	ProjectID string `json:"projectId"`
}

func (r SessionsListRequest) Validate() error { return nil }

// SortDirection is the enumerated sort order accepted by
// sessions:getDetail and projects:getCombinedDetail.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

func (d SortDirection) Valid() bool {
	return d == SortAscending || d == SortDescending || d == ""
}

// DetailRequest is shared by sessions:getDetail and
// projects:getCombinedDetail.
type DetailRequest struct {
	SessionID     string           `json:"sessionId,omitempty"`
	ProjectID     string           `json:"projectId,omitempty"`
	Page          int              `json:"page"`
	PageSize      int              `json:"pageSize"`
	SortDirection SortDirection    `json:"sortDirection"`
	Categories    []canon.Category `json:"categories,omitempty"`
	CategoriesSet bool             `json:"-"`
	Query         string           `json:"query"`
	FocusMessageID string          `json:"focusMessageId,omitempty"`
	FocusSourceID  string          `json:"focusSourceId,omitempty"`
}

// UnmarshalJSON records whether "categories" was present in the
// payload, distinguishing an omitted key (all categories) from an
// explicit empty array (no categories).
func (r *DetailRequest) UnmarshalJSON(data []byte) error {
	type shadow DetailRequest
	if err := json.Unmarshal(data, (*shadow)(r)); err != nil {
		return err
	}
	r.CategoriesSet = keyPresent(data, "categories")
	return nil
}

// Validate enforces page>=0, pageSize in [1,500], a known sort
// direction, and known categories.
func (r DetailRequest) Validate() error {
	if r.Page < 0 {
		return fmt.Errorf("page must be >= 0")
	}
	if r.PageSize < 1 || r.PageSize > 500 {
		return fmt.Errorf("pageSize must be in [1,500]")
	}
	if !r.SortDirection.Valid() {
		return fmt.Errorf("unknown sortDirection %q", r.SortDirection)
	}
	for _, c := range r.Categories {
		if _, ok := canon.NormalizeCategory(c); !ok {
			return fmt.Errorf("unknown category %q", c)
		}
	}
	return nil
}

// DetailResponse is shared by sessions:getDetail and
// projects:getCombinedDetail.
type DetailResponse struct {
	TotalCount     int            `json:"totalCount"`
	CategoryCounts map[string]int `json:"categoryCounts"`
	Page           int            `json:"page"`
	PageSize       int            `json:"pageSize"`
	FocusIndex     *int           `json:"focusIndex,omitempty"`
	Messages       []MessageJSON  `json:"messages"`
	Session        *SessionJSON   `json:"session,omitempty"`
}

// MessageJSON is the wire shape of one canonical message, enriched with
// its owning session's descriptive fields when relevant.
type MessageJSON struct {
	ID                          string  `json:"id"`
	SourceID                    string  `json:"sourceId"`
	SessionID                   string  `json:"sessionId"`
	Provider                    string  `json:"provider"`
	Category                    string  `json:"category"`
	Content                     string  `json:"content"`
	CreatedAt                   string  `json:"createdAt"`
	TokenInput                  *int    `json:"tokenInput,omitempty"`
	TokenOutput                 *int    `json:"tokenOutput,omitempty"`
	OperationDurationMs         *int64  `json:"operationDurationMs,omitempty"`
	OperationDurationSource     *string `json:"operationDurationSource,omitempty"`
	OperationDurationConfidence *string `json:"operationDurationConfidence,omitempty"`
	SessionTitle                string  `json:"sessionTitle,omitempty"`
	SessionActivity             string  `json:"sessionActivity,omitempty"`
	GitBranch                   string  `json:"gitBranch,omitempty"`
	CWD                         string  `json:"cwd,omitempty"`
}

// SessionJSON is the wire shape of a session summary.
type SessionJSON struct {
	ID               string  `json:"id"`
	ProjectID        string  `json:"projectId"`
	Provider         string  `json:"provider"`
	FilePath         string  `json:"filePath"`
	ModelNames       string  `json:"modelNames"`
	Title            string  `json:"title"`
	StartedAt        string  `json:"startedAt"`
	EndedAt          string  `json:"endedAt"`
	DurationMs       *int64  `json:"durationMs,omitempty"`
	GitBranch        string  `json:"gitBranch"`
	CWD              string  `json:"cwd"`
	MessageCount     int     `json:"messageCount"`
	TokenInputTotal  int     `json:"tokenInputTotal"`
	TokenOutputTotal int     `json:"tokenOutputTotal"`
}

// ProjectJSON is the wire shape of a project summary.
type ProjectJSON struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	SessionCount int    `json:"sessionCount"`
	LastActivity string `json:"lastActivity"`
}

// ProjectsListResponse answers projects:list.
type ProjectsListResponse struct {
	Projects []ProjectJSON `json:"projects"`
}

// SessionsListResponse answers sessions:list.
type SessionsListResponse struct {
	Sessions []SessionJSON `json:"sessions"`
}

// BookmarksListProjectRequest is the bookmarks:listProject request
// payload.
type BookmarksListProjectRequest struct {
	ProjectID     string           `json:"projectId"`
	Query         string           `json:"query,omitempty"`
	Categories    []canon.Category `json:"categories,omitempty"`
	CategoriesSet bool             `json:"-"`
}

// UnmarshalJSON records whether "categories" was present in the
// payload, mirroring DetailRequest's nil-vs-empty distinction.
func (r *BookmarksListProjectRequest) UnmarshalJSON(data []byte) error {
	type shadow BookmarksListProjectRequest
	if err := json.Unmarshal(data, (*shadow)(r)); err != nil {
		return err
	}
	r.CategoriesSet = keyPresent(data, "categories")
	return nil
}

func (r BookmarksListProjectRequest) Validate() error {
	if r.ProjectID == "" {
		return fmt.Errorf("projectId is required")
	}
	for _, c := range r.Categories {
		if _, ok := canon.NormalizeCategory(c); !ok {
			return fmt.Errorf("unknown category %q", c)
		}
	}
	return nil
}

// BookmarkJSON is the wire shape of one bookmark, joined against live
// message data where possible.
type BookmarkJSON struct {
	ProjectID       string `json:"projectId"`
	MessageID       string `json:"messageId"`
	SessionID       string `json:"sessionId"`
	MessageSourceID string `json:"messageSourceId"`
	Provider        string `json:"provider"`
	SessionTitle    string `json:"sessionTitle"`
	MessageCategory string `json:"messageCategory"`
	MessageContent  string `json:"messageContent"`
	MessageCreatedAt string `json:"messageCreatedAt"`
	BookmarkedAt    string `json:"bookmarkedAt"`
	IsOrphaned      bool   `json:"isOrphaned"`
}

// BookmarksListProjectResponse answers bookmarks:listProject.
type BookmarksListProjectResponse struct {
	ProjectID      string         `json:"projectId"`
	TotalCount     int            `json:"totalCount"`
	FilteredCount  int            `json:"filteredCount"`
	CategoryCounts map[string]int `json:"categoryCounts"`
	Results        []BookmarkJSON `json:"results"`
}

// BookmarksToggleRequest is the bookmarks:toggle request payload.
type BookmarksToggleRequest struct {
	ProjectID       string `json:"projectId"`
	SessionID       string `json:"sessionId"`
	MessageID       string `json:"messageId"`
	MessageSourceID string `json:"messageSourceId"`
}

func (r BookmarksToggleRequest) Validate() error {
	if r.ProjectID == "" || r.SessionID == "" || r.MessageID == "" || r.MessageSourceID == "" {
		return fmt.Errorf("projectId, sessionId, messageId, and messageSourceId are all required")
	}
	return nil
}

// BookmarksToggleResponse answers bookmarks:toggle.
type BookmarksToggleResponse struct {
	Bookmarked bool `json:"bookmarked"`
}

// SearchQueryRequest is the search:query request payload.
type SearchQueryRequest struct {
	Query         string           `json:"query"`
	Categories    []canon.Category `json:"categories,omitempty"`
	CategoriesSet bool             `json:"-"`
	Providers     []canon.Provider `json:"providers,omitempty"`
	ProjectIDs    []string         `json:"projectIds,omitempty"`
	ProjectQuery  string           `json:"projectQuery,omitempty"`
	Limit         int              `json:"limit"`
	Offset        int              `json:"offset"`
}

// UnmarshalJSON records whether "categories" was present in the
// payload, mirroring DetailRequest's nil-vs-empty distinction.
func (r *SearchQueryRequest) UnmarshalJSON(data []byte) error {
	type shadow SearchQueryRequest
	if err := json.Unmarshal(data, (*shadow)(r)); err != nil {
		return err
	}
	r.CategoriesSet = keyPresent(data, "categories")
	return nil
}

func (r SearchQueryRequest) Validate() error {
	if r.Limit < 1 || r.Limit > 500 {
		return fmt.Errorf("limit must be in [1,500]")
	}
	if r.Offset < 0 {
		return fmt.Errorf("offset must be >= 0")
	}
	for _, p := range r.Providers {
		if !p.Valid() {
			return fmt.Errorf("unknown provider %q", p)
		}
	}
	for _, c := range r.Categories {
		if _, ok := canon.NormalizeCategory(c); !ok {
			return fmt.Errorf("unknown category %q", c)
		}
	}
	return nil
}

// SearchHitJSON is one search:query result.
type SearchHitJSON struct {
	MessageJSON
	Snippet string `json:"snippet"`
}

// SearchQueryResponse answers search:query.
type SearchQueryResponse struct {
	Query          string          `json:"query"`
	TotalCount     int             `json:"totalCount"`
	CategoryCounts map[string]int  `json:"categoryCounts"`
	Results        []SearchHitJSON `json:"results"`
}

// PathOpenInFileManagerRequest is the path:openInFileManager request
// payload.
type PathOpenInFileManagerRequest struct {
	Path string `json:"path"`
}

func (r PathOpenInFileManagerRequest) Validate() error {
	if r.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// PathOpenInFileManagerResponse answers path:openInFileManager.
type PathOpenInFileManagerResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// keyPresent reports whether key is a top-level key in the JSON object
// data, used to distinguish an omitted field from an explicit empty
// array/value for the request types that need that distinction.
func keyPresent(data []byte, key string) bool {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return false
	}
	_, ok := raw[key]
	return ok
}
