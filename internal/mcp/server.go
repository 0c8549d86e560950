package mcp

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jcdickinson/ferrisnav/internal/daemon"
	"github.com/jcdickinson/ferrisnav/internal/nav"
	"github.com/jcdickinson/ferrisnav/internal/rpc"
	"github.com/jcdickinson/ferrisnav/internal/sidebar"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

//go:embed instructions.md
var instructions string

// sidebarClient is the part of the daemon client the MCP server uses.
type sidebarClient interface {
	Emit(ctx context.Context, crates []rpc.CrateSpec, onProgress func(string)) (*rpc.EmitResponse, error)
	GetSidebar(ctx context.Context, req rpc.GetSidebarRequest) (*rpc.GetSidebarResponse, error)
}

type Server struct {
	mcpServer *server.MCPServer
	client    sidebarClient
}

func NewServer(socketPath string) (*Server, error) {
	client, err := daemon.ConnectOrSpawn(socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w", err)
	}
	return newServer(client), nil
}

func newServer(client sidebarClient) *Server {
	s := &Server{client: client}

	mcpServer := server.NewMCPServer(
		"ferrisnav",
		"0.1.0",
		server.WithInstructions(instructions),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("get_sidebar",
			mcp.WithDescription("Get the sidebar index of a Rust module: its public items grouped by category, each with a one-line summary. Fetches the crate from docs.rs on first use."),
			mcp.WithString("crate",
				mcp.Description("Crate name (e.g., \"bevy\")"),
				mcp.Required(),
			),
			mcp.WithString("version",
				mcp.Description("Version (default: \"latest\")"),
			),
			mcp.WithString("module",
				mcp.Description("Rust module path, e.g. \"bevy::prelude::shape\" (default: crate root)"),
			),
			mcp.WithString("format",
				mcp.Description("Output format (default: markdown)"),
				mcp.Enum("markdown", "json", "script", "yaml"),
			),
		),
		s.handleGetSidebar,
	)

	mcpServer.AddTool(
		mcp.NewTool("list_modules",
			mcp.WithDescription("List the public modules of a Rust crate, with the number of sidebar entries in each."),
			mcp.WithString("crate",
				mcp.Description("Crate name (e.g., \"bevy\")"),
				mcp.Required(),
			),
			mcp.WithString("version",
				mcp.Description("Version (default: \"latest\")"),
			),
		),
		s.handleListModules,
	)
}

func (s *Server) registerResources(mcpServer *server.MCPServer) {
	mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"sidebar://{crate}/{version}/{module}",
			"Rust module sidebar index",
			mcp.WithTemplateDescription("The sidebar index of a Rust module as JSON: category label to [name, summary] pairs."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleReadResource,
	)
}

func (s *Server) handleGetSidebar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	crate, _ := args["crate"].(string)
	if crate == "" {
		return mcp.NewToolResultError("missing required parameter: crate"), nil
	}
	version, _ := args["version"].(string)
	module, _ := args["module"].(string)
	format, _ := args["format"].(string)

	resp, err := s.client.GetSidebar(ctx, rpc.GetSidebarRequest{Crate: crate, Version: version, Module: module})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get sidebar failed: %v", err)), nil
	}

	var buf bytes.Buffer
	switch format {
	case "", "markdown":
		page := nav.NewPage(resp.Module, resp.Sidebar)
		page.Meta = map[string]string{"crate": resp.Crate, "version": resp.Version}
		err = nav.RenderMarkdown(&buf, page, nav.RenderOptions{})
	default:
		var f sidebar.Format
		if f, err = sidebar.ParseFormat(format); err == nil {
			err = sidebar.Encode(&buf, resp.Sidebar, f)
		}
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rendering sidebar: %v", err)), nil
	}

	for _, w := range resp.Warnings {
		fmt.Fprintf(&buf, "\nwarning: %s", w)
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleListModules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	crate, _ := args["crate"].(string)
	if crate == "" {
		return mcp.NewToolResultError("missing required parameter: crate"), nil
	}
	version, _ := args["version"].(string)

	resp, err := s.client.Emit(ctx, []rpc.CrateSpec{{Name: crate, Version: version, All: true}}, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing modules failed: %v", err)), nil
	}
	if len(resp.Results) == 0 {
		return mcp.NewToolResultError("daemon returned no result"), nil
	}
	if r := resp.Results[0]; r.Error != "" {
		return mcp.NewToolResultError(r.Error), nil
	}

	resultJSON, _ := json.MarshalIndent(resp.Results[0], "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

// parseSidebarURI splits sidebar://crate/version/module.
func parseSidebarURI(uri string) (rpc.GetSidebarRequest, error) {
	trimmed, ok := strings.CutPrefix(uri, "sidebar://")
	if !ok {
		return rpc.GetSidebarRequest{}, fmt.Errorf("invalid resource URI: %s", uri)
	}
	parts := strings.SplitN(trimmed, "/", 3)
	if len(parts) < 2 || parts[0] == "" {
		return rpc.GetSidebarRequest{}, fmt.Errorf("invalid resource URI: %s", uri)
	}
	req := rpc.GetSidebarRequest{Crate: parts[0], Version: parts[1]}
	if len(parts) == 3 {
		req.Module = parts[2]
	}
	return req, nil
}

func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	sreq, err := parseSidebarURI(uri)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.GetSidebar(ctx, sreq)
	if err != nil {
		return nil, fmt.Errorf("getting sidebar: %w", err)
	}

	data, err := json.Marshal(resp.Sidebar)
	if err != nil {
		return nil, fmt.Errorf("encoding sidebar: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) Shutdown(_ context.Context) error {
	return nil
}
