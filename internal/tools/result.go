package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes surfaced inside error envelopes. The code is prefixed to the
// message as "[CODE] message"; callers see plain text only, never a
// structured error channel.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeMeteringError   = "METERING_ERROR"
	CodeProviderError   = "PROVIDER_ERROR"
	CodeStorageError    = "STORAGE_ERROR"
	CodeAborted         = "ABORTED"
	CodeInternal        = "INTERNAL"
)

// Error is a coded tool failure. Tools return it from handlers (or wrap it
// in an envelope directly); the dispatcher formats the code into the error
// text. Unexpected error values default to CodeInternal.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Code + ": " + e.Message
}

// NewError creates a coded error with a formatted message.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Block content types.
const (
	BlockText     = "text"
	BlockImage    = "image"
	BlockResource = "resource"
)

// Block is one unit of result content.
type Block struct {
	// Type is one of BlockText, BlockImage, BlockResource.
	Type string `json:"type"`

	// Text holds the payload for text blocks and the optional caption
	// for resource blocks.
	Text string `json:"text,omitempty"`

	// Data holds base64 payload bytes for image blocks.
	Data string `json:"data,omitempty"`

	// MIMEType describes Data or the resource at URI.
	MIMEType string `json:"mimeType,omitempty"`

	// URI locates the referenced resource for resource blocks.
	URI string `json:"uri,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// ImageBlock builds an image content block from base64 data.
func ImageBlock(data, mimeType string) Block {
	return Block{Type: BlockImage, Data: data, MIMEType: mimeType}
}

// ResourceBlock builds a resource reference block.
func ResourceBlock(uri, mimeType, text string) Block {
	return Block{Type: BlockResource, URI: uri, MIMEType: mimeType, Text: text}
}

// Result is the uniform envelope every invocation returns. Content is
// never empty and IsError is always meaningful, no matter how the
// invocation went.
type Result struct {
	Content []Block `json:"content"`
	IsError bool    `json:"isError"`
}

// Textf builds a success envelope with one formatted text block.
func Textf(format string, args ...any) *Result {
	return &Result{Content: []Block{TextBlock(fmt.Sprintf(format, args...))}}
}

// JSON builds a success envelope carrying v as one JSON text block.
// All structured data goes out as JSON text; clients parse it.
func JSON(v any) *Result {
	b, err := json.Marshal(v)
	if err != nil {
		return Errorf(CodeInternal, "encoding result: %v", err)
	}
	return &Result{Content: []Block{TextBlock(string(b))}}
}

// Errorf builds an error envelope with a coded plain-text message.
func Errorf(code, format string, args ...any) *Result {
	msg := fmt.Sprintf(format, args...)
	return &Result{
		Content: []Block{TextBlock("[" + code + "] " + msg)},
		IsError: true,
	}
}

// FromError converts an error into the uniform error envelope.
// Coded errors keep their code; context cancellation maps to CodeAborted
// with the fixed abort message; anything else is CodeInternal.
func FromError(err error) *Result {
	var coded *Error
	if errors.As(err, &coded) {
		return Errorf(coded.Code, "%s", coded.Message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Errorf(CodeAborted, "operation was aborted")
	}
	return Errorf(CodeInternal, "%v", err)
}
