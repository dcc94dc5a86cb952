package job

import (
	"strings"

	"github.com/miragelabs/mirage/internal/tools"
)

// Result payloads are inconsistent across models: the artifact URL may sit
// under a media key, under data, inside an array of objects or of strings,
// or the whole payload may be the URL. The accepted shapes form an ordered
// rule list; the first rule yielding a URL wins.

var mediaKeys = []string{"video", "image", "audio", "audio_file", "file", "output", "model_mesh"}

var collectionKeys = []string{"images", "videos", "audios", "files", "outputs"}

type urlRule struct {
	name    string
	extract func(v any) string
}

var urlRules = []urlRule{
	{"object url", objectURL},
	{"nested data", nestedData},
	{"object array", objectArray},
	{"string array", stringArray},
	{"bare string", bareString},
}

// ExtractURL finds the primary artifact URL in a provider result payload.
func ExtractURL(payload any) (string, error) {
	for _, rule := range urlRules {
		if url := rule.extract(payload); url != "" {
			return url, nil
		}
	}
	return "", tools.NewError(tools.CodeProviderError, "no artifact URL found in provider response")
}

// objectURL matches {"url": ...} and {"video": {"url": ...}} forms.
func objectURL(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	if s := urlField(m["url"]); s != "" {
		return s
	}
	for _, key := range mediaKeys {
		if mm, ok := m[key].(map[string]any); ok {
			if s := urlField(mm["url"]); s != "" {
				return s
			}
		}
	}
	return ""
}

// nestedData matches payloads that bury the artifact under a data member.
func nestedData(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	d, ok := m["data"]
	if !ok || d == nil {
		return ""
	}
	for _, extract := range []func(any) string{objectURL, objectArray, stringArray, bareString} {
		if s := extract(d); s != "" {
			return s
		}
	}
	return ""
}

// objectArray matches [{"url": ...}] at the top level or under a known
// collection key.
func objectArray(v any) string {
	if s := firstObjectURL(v); s != "" {
		return s
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range collectionKeys {
		if s := firstObjectURL(m[key]); s != "" {
			return s
		}
	}
	return ""
}

// stringArray matches ["https://..."] at the top level or under a known
// collection key.
func stringArray(v any) string {
	if s := firstURLString(v); s != "" {
		return s
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range collectionKeys {
		if s := firstURLString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

// bareString matches a payload that is itself the URL.
func bareString(v any) string {
	s, ok := v.(string)
	if !ok || !looksLikeURL(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstObjectURL(v any) string {
	arr, ok := v.([]any)
	if !ok {
		return ""
	}
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			if s := urlField(m["url"]); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstURLString(v any) string {
	arr, ok := v.([]any)
	if !ok {
		return ""
	}
	for _, item := range arr {
		if s, ok := item.(string); ok && looksLikeURL(s) {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// urlField trusts any non-empty string under a key named url.
func urlField(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// looksLikeURL guards the string forms, where any text could otherwise be
// mistaken for an artifact location.
func looksLikeURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
