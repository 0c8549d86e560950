package rpc

import "github.com/jcdickinson/ferrisnav/internal/sidebar"

// EmitRequest is the request body for POST /emit.
type EmitRequest struct {
	Crates []CrateSpec `json:"crates"`
}

// CrateSpec selects what to emit. Module is a Rust path ("bevy::prelude::shape");
// empty means the crate root. All emits every public module and ignores Module.
type CrateSpec struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Module  string `json:"module,omitempty"`
	All     bool   `json:"all,omitempty"`
}

// EmitResponse collects the results streamed by POST /emit.
type EmitResponse struct {
	Results []CrateResult `json:"results"`
}

type CrateResult struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Modules []ModuleSidebar `json:"modules,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ModuleSidebar is the index emitted for one module.
type ModuleSidebar struct {
	Module      string         `json:"module"`
	ContentHash string         `json:"content_hash"`
	Categories  int            `json:"categories"`
	Entries     int            `json:"entries"`
	Sidebar     *sidebar.Index `json:"sidebar,omitempty"`
}

// ProgressLine is a single line of NDJSON streamed from the emit endpoint.
type ProgressLine struct {
	Type    string       `json:"type"` // "progress" or "result"
	Message string       `json:"message,omitempty"`
	Result  *CrateResult `json:"result,omitempty"`
}

// GetSidebarRequest is the request body for POST /get-sidebar.
type GetSidebarRequest struct {
	Crate   string `json:"crate"`
	Version string `json:"version"`
	Module  string `json:"module"`
}

// GetSidebarResponse is the response body for POST /get-sidebar.
type GetSidebarResponse struct {
	Crate    string         `json:"crate"`
	Version  string         `json:"version"`
	Module   string         `json:"module"`
	Sidebar  *sidebar.Index `json:"sidebar"`
	Warnings []string       `json:"warnings,omitempty"`
}

// StatusResponse is the response body for GET /status.
type StatusResponse struct {
	Crates   []CrateStatus `json:"crates"`
	Sidebars int           `json:"sidebars"`
	Entries  int           `json:"entries"`
	Cached   int           `json:"cached_crates"`
}

type CrateStatus struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Processed bool   `json:"processed"`
	Modules   int    `json:"modules"`
}
