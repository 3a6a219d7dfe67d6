package hianime

import (
	"fmt"
	"strings"
)

// Server is one of the embed player mirrors.
type Server string

const (
	ServerHD1 Server = "HD-1"
	ServerHD2 Server = "HD-2"
	ServerHD3 Server = "HD-3"
)

// Lang selects the audio track.
type Lang string

const (
	LangSub Lang = "sub"
	LangDub Lang = "dub"
)

var serverBase = map[Server]string{
	ServerHD1: "https://megaplay.buzz/stream/s-4",
	ServerHD2: "https://megaplay.buzz/stream/s-2",
	ServerHD3: "https://megacloud.bloggy.click/stream/s-3",
}

// Servers lists the mirrors in preference order.
func Servers() []Server { return []Server{ServerHD1, ServerHD2, ServerHD3} }

// ParseServer accepts "HD-1", "hd1" or "1". Empty selects HD-1.
func ParseServer(s string) (Server, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	switch norm {
	case "", "HD1", "1":
		return ServerHD1, nil
	case "HD2", "2":
		return ServerHD2, nil
	case "HD3", "3":
		return ServerHD3, nil
	}
	return "", fmt.Errorf("hianime: unknown server %q", s)
}

// ParseLang accepts sub or dub. Empty selects sub.
func ParseLang(s string) (Lang, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sub":
		return LangSub, nil
	case "dub":
		return LangDub, nil
	}
	return "", fmt.Errorf("hianime: unknown language %q", s)
}

// PlayerURL builds the embed URL for an episode: {base}/{episodeID}/{lang}.
// Unknown values fall back to HD-1 and sub.
func PlayerURL(episodeID string, lang Lang, server Server) string {
	base, ok := serverBase[server]
	if !ok {
		base = serverBase[ServerHD1]
	}
	if lang != LangDub {
		lang = LangSub
	}
	return base + "/" + episodeID + "/" + string(lang)
}
