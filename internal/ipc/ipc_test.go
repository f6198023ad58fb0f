package ipc

import (
	"encoding/json"
	"testing"
)

func TestProjectsListRequestProvidersNilVsEmpty(t *testing.T) {
	var omitted ProjectsListRequest
	if err := json.Unmarshal([]byte(`{"query":""}`), &omitted); err != nil {
		t.Fatal(err)
	}
	if omitted.ProvidersSet {
		t.Fatal("expected ProvidersSet=false when providers key is omitted")
	}

	var explicit ProjectsListRequest
	if err := json.Unmarshal([]byte(`{"providers":[]}`), &explicit); err != nil {
		t.Fatal(err)
	}
	if !explicit.ProvidersSet {
		t.Fatal("expected ProvidersSet=true for an explicit empty array")
	}
}

func TestDetailRequestValidation(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"sessionId":"s1","page":0,"pageSize":50,"sortDirection":"asc"}`, false},
		{"negative page", `{"sessionId":"s1","page":-1,"pageSize":50,"sortDirection":"asc"}`, true},
		{"pageSize too large", `{"sessionId":"s1","page":0,"pageSize":9000,"sortDirection":"asc"}`, true},
		{"bad sort", `{"sessionId":"s1","page":0,"pageSize":50,"sortDirection":"sideways"}`, true},
		{"bad category", `{"sessionId":"s1","page":0,"pageSize":50,"sortDirection":"asc","categories":["bogus"]}`, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var req DetailRequest
			err := DecodeAndValidate(ChannelSessionsGetDetail, json.RawMessage(c.payload), &req)
			if c.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !c.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.wantErr {
				var ve *ValidationError
				if !asValidationError(err, &ve) {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
			}
		})
	}
}

func asValidationError(err error, target **ValidationError) bool {
	ve, ok := err.(*ValidationError)
	if !ok {
		return false
	}
	*target = ve
	return true
}

func TestBookmarksToggleRequestRequiresAllFields(t *testing.T) {
	var req BookmarksToggleRequest
	err := DecodeAndValidate(ChannelBookmarksToggle, json.RawMessage(`{"projectId":"p1"}`), &req)
	if err == nil {
		t.Fatal("expected validation error for missing fields")
	}
}

func TestSearchQueryRequestLimitBounds(t *testing.T) {
	var req SearchQueryRequest
	err := DecodeAndValidate(ChannelSearchQuery, json.RawMessage(`{"query":"x","limit":0,"offset":0}`), &req)
	if err == nil {
		t.Fatal("expected validation error for limit=0")
	}
}
