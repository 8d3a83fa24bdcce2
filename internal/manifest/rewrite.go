package manifest

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Mode selects the rewrite strategy.
type Mode string

const (
	// ModeLine rewrites only segment reference lines and URI attributes.
	ModeLine Mode = "line"
	// ModeCoarse replaces every textual occurrence of the base name.
	ModeCoarse Mode = "coarse"
)

// ParseMode maps a configuration value to a Mode, defaulting to ModeLine.
func ParseMode(value string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(value))) == ModeCoarse {
		return ModeCoarse
	}
	return ModeLine
}

var uriAttr = regexp.MustCompile(`URI="([^"]*)"`)

// Rewriter rewrites playlists for one artifact route.
type Rewriter struct {
	Mode  Mode
	Route string
}

// Prefix returns the URL directory holding item id's artifacts on host.
func Prefix(hostBaseURL, route string, id int64) string {
	return strings.TrimRight(hostBaseURL, "/") + "/" + strings.Trim(route, "/") + "/" + strconv.FormatInt(id, 10) + "/"
}

// Rewrite returns text with its references rooted at hostBaseURL. base is
// the playlist stem used by ModeCoarse.
func (r Rewriter) Rewrite(text, hostBaseURL string, id int64, base string) string {
	host := strings.TrimRight(hostBaseURL, "/")
	if host == "" {
		return text
	}
	prefix := Prefix(host, r.Route, id)
	if r.Mode == ModeCoarse {
		if strings.Contains(text, host) || base == "" {
			return text
		}
		return strings.ReplaceAll(text, base, prefix+base)
	}
	if strings.Contains(text, prefix) {
		return text
	}
	return r.rewriteLines(text, prefix, id)
}

// Rewrite applies ModeLine for route.
func Rewrite(text, hostBaseURL, route string, id int64, base string) string {
	return Rewriter{Mode: ModeLine, Route: route}.Rewrite(text, hostBaseURL, id, base)
}

func (r Rewriter) rewriteLines(text, prefix string, id int64) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		body, cr := strings.CutSuffix(line, "\r")
		trimmed := strings.TrimSpace(body)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "#"):
			body = uriAttr.ReplaceAllStringFunc(body, func(match string) string {
				value := uriAttr.FindStringSubmatch(match)[1]
				return `URI="` + r.reroot(value, prefix, id) + `"`
			})
		default:
			body = r.reroot(trimmed, prefix, id)
		}
		if cr {
			body += "\r"
		}
		lines[i] = body
	}
	return strings.Join(lines, "\n")
}

// reroot maps one reference to the target prefix. Bare relative names are
// joined to prefix; absolute references already addressing this item's
// artifact directory move to the new host; anything else is left alone.
func (r Rewriter) reroot(ref, prefix string, id int64) string {
	if ref == "" || strings.HasPrefix(ref, prefix) {
		return ref
	}
	marker := "/" + strings.Trim(r.Route, "/") + "/" + strconv.FormatInt(id, 10) + "/"

	if parsed, err := url.Parse(ref); err == nil && (parsed.Scheme != "" || parsed.Host != "") {
		idx := strings.Index(parsed.Path, marker)
		if idx < 0 {
			return ref
		}
		rest := parsed.Path[idx+len(marker):]
		if parsed.RawQuery != "" {
			rest += "?" + parsed.RawQuery
		}
		return prefix + rest
	}
	if strings.HasPrefix(ref, "/") {
		if rest, ok := strings.CutPrefix(ref, marker); ok {
			return prefix + rest
		}
		return ref
	}
	return prefix + strings.TrimPrefix(ref, "./")
}
