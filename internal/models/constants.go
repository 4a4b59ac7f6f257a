// Package models contains data types and constants for the Sydney chat service.
package models

import "strings"

// Endpoints for the chat service
const (
	EndpointCreate  = "https://edgeservices.bing.com/edgesvc/turing/conversation/create"
	EndpointChatHub = "wss://sydney.bing.com/sydney/ChatHub"
	EndpointOrigin  = "https://www.bing.com"
	EndpointReferer = "https://www.bing.com/search?q=Bing+AI&showconv=1"
)

// AuthCookie is the cookie the service requires for an authenticated session
const AuthCookie = "_U"

// RecordSeparator terminates every ChatHub frame
const RecordSeparator = "\x1e"

// Style represents a conversation style with the option sets it enables
type Style struct {
	Name       string
	OptionSets []string
}

var baseOptionSets = []string{
	"nlu_direct_response_filter",
	"deepleo",
	"disable_emoji_spoken_text",
	"responsible_ai_policy_235",
	"enablemm",
	"dv3sugg",
	"autosave",
	"iyxapbing",
	"iycapbing",
	"saharagenconv5",
}

func withBase(extra ...string) []string {
	sets := make([]string, 0, len(baseOptionSets)+len(extra))
	sets = append(sets, baseOptionSets...)
	return append(sets, extra...)
}

// Available styles
var (
	StyleCreative = Style{
		Name:       "creative",
		OptionSets: withBase("h3imaginative", "clgalileo", "gencontentv3"),
	}

	StyleBalanced = Style{
		Name:       "balanced",
		OptionSets: withBase("galileo", "saharasugg"),
	}

	StylePrecise = Style{
		Name:       "precise",
		OptionSets: withBase("h3precise", "clgalileo", "gencontentv3"),
	}

	// DefaultStyle is the recommended default
	DefaultStyle = StyleBalanced
)

// AllStyles returns a list of all available styles
func AllStyles() []Style {
	return []Style{StyleCreative, StyleBalanced, StylePrecise}
}

// StyleFromName returns a Style by its name, falling back to DefaultStyle
func StyleFromName(name string) Style {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "creative":
		return StyleCreative
	case "precise":
		return StylePrecise
	case "balanced":
		return StyleBalanced
	default:
		return DefaultStyle
	}
}

// AllowedMessageTypes lists the message types the client asks the service to stream
var AllowedMessageTypes = []string{
	"ActionRequest",
	"Chat",
	"Context",
	"InternalSearchQuery",
	"InternalSearchResult",
	"Disengaged",
	"InternalLoaderMessage",
	"Progress",
	"RenderCardRequest",
	"SemanticSerp",
	"GenerateContentQuery",
	"SearchQuery",
}

// DefaultHeaders returns the default headers for conversation requests
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "application/json",
		"Accept-Language":           "en-US,en;q=0.9",
		"Content-Type":              "application/json",
		"Origin":                    EndpointOrigin,
		"Referer":                   EndpointReferer,
		"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
		"Sec-CH-UA":                 `"Not_A Brand";v="8", "Chromium";v="120", "Microsoft Edge";v="120"`,
		"Sec-CH-UA-Mobile":          "?0",
		"Sec-CH-UA-Platform":        `"Windows"`,
		"Sec-Fetch-Dest":            "empty",
		"Sec-Fetch-Mode":            "cors",
		"Sec-Fetch-Site":            "same-origin",
		"X-Ms-Useragent":            "azsdk-js-api-client-factory/1.0.0-beta.1 core-rest-pipeline/1.12.3 OS/Windows",
		"X-Edge-Shopping-Flag":      "1",
		"Upgrade-Insecure-Requests": "1",
		"Accept-Encoding":           "gzip, deflate, br",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
	}
}

// ChatHubHeaders returns headers for the ChatHub websocket handshake
func ChatHubHeaders() map[string]string {
	return map[string]string{
		"Origin":          EndpointOrigin,
		"User-Agent":      DefaultHeaders()["User-Agent"],
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	}
}
