package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolNameSearch is the name of the text search tool.
const ToolNameSearch = "places_text_search"

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	AddTool(srv, &sdkmcp.Tool{
		Name:        ToolNameSearch,
		Description: "Search Google Places by free text (e.g. 'cafes in Recoleta'). Follows result pages up to max_pages and returns a flat table: columns are dotted field paths such as displayName.text or location.latitude, lists are joined with ';'. Set save=true to also write CSV/JSON files under the output directory.",
	}, ToolSearch(d))
}
