package mcp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/miragelabs/mirage/internal/tools"
)

// decodeArguments converts the SDK's call arguments into the raw map the
// registry dispatches. Raw handlers receive arguments as undecoded JSON;
// other callers may hand the map over directly. Absent arguments decode
// to an empty map, never nil.
func decodeArguments(v any) (map[string]any, error) {
	switch args := v.(type) {
	case nil:
		return map[string]any{}, nil
	case json.RawMessage:
		return unmarshalObject(args)
	case []byte:
		return unmarshalObject(args)
	case map[string]any:
		return args, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding arguments: %w", err)
		}
		return unmarshalObject(raw)
	}
}

func unmarshalObject(raw []byte) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// resultToMCP converts the uniform result envelope into an SDK call
// result. Error results stay in-band: IsError carries through and the
// coded message rides the text content, so clients see tool failures as
// results rather than protocol errors.
func resultToMCP(res *tools.Result) *mcp.CallToolResult {
	out := &mcp.CallToolResult{IsError: res.IsError}
	for _, b := range res.Content {
		out.Content = append(out.Content, blockToContent(b))
	}
	if len(out.Content) == 0 {
		out.Content = []mcp.Content{&mcp.TextContent{}}
	}
	return out
}

func blockToContent(b tools.Block) mcp.Content {
	switch b.Type {
	case tools.BlockImage:
		raw, err := base64.StdEncoding.DecodeString(b.Data)
		if err != nil {
			return &mcp.TextContent{Text: b.Data}
		}
		return &mcp.ImageContent{Data: raw, MIMEType: b.MIMEType}
	case tools.BlockResource:
		return &mcp.EmbeddedResource{Resource: &mcp.ResourceContents{
			URI:      b.URI,
			MIMEType: b.MIMEType,
			Text:     b.Text,
		}}
	default:
		return &mcp.TextContent{Text: b.Text}
	}
}
