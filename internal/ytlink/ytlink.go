// Package ytlink recognises the YouTube video links the extension accepts.
//
// Supported shapes:
//
//	https://www.youtube.com/watch?v=GiEsyOyk1m4
//	https://www.youtube.com/watch?si=xPECLiIHKMwF_lsv&v=GiEsyOyk1m4&feature=youtu.be
//	https://youtu.be/GiEsyOyk1m4?si=xPECLiIHKMwF_lsv
//	https://www.youtube.com/live/hciNKcLwSes?si=0TqGb4yFEIcxTJzr
package ytlink

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	hostPattern    = regexp.MustCompile(`^(www\.)?(youtube\.com|youtu\.be)$`)
	videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// VideoID extracts the video ID from a YouTube link. It returns "" when the
// link has no recognisable ID; the ID is not checked for shape.
func VideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "youtu.be"):
		return strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)[0]
	case strings.Contains(host, "youtube.com"):
		if _, rest, ok := strings.Cut(u.Path, "/live/"); ok {
			// Everything after /live/ is the ID; a trailing segment makes it invalid.
			id, _, _ := strings.Cut(rest, "/live/")
			return id
		}
		return u.Query().Get("v")
	}
	return ""
}

// Valid reports whether raw is a YouTube video link with a well-formed ID.
func Valid(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !hostPattern.MatchString(strings.ToLower(u.Hostname())) {
		return false
	}
	return videoIDPattern.MatchString(VideoID(raw))
}
