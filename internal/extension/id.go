package extension

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf16"
)

// URLScheme is the scheme of every extension page URL.
const URLScheme = "chrome-extension"

// DeriveID computes the ID Chrome assigns to an unpacked extension: the
// manifest key when present, otherwise the absolute load path with
// symlinks resolved.
func DeriveID(dir string, m *Manifest) (string, error) {
	if m != nil && m.Key != "" {
		der, err := base64.StdEncoding.DecodeString(m.Key)
		if err != nil {
			return "", fmt.Errorf("failed to decode manifest key: %w", err)
		}
		return idFromBytes(der), nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	// Chrome hashes the real path. A dir that does not exist yet is
	// hashed as given.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return idFromBytes(pathBytes(abs)), nil
}

// pathBytes mirrors the byte layout Chrome hashes: UTF-16LE with an
// upper-case drive letter on Windows, raw bytes elsewhere.
func pathBytes(p string) []byte {
	if runtime.GOOS != "windows" {
		return []byte(p)
	}
	if len(p) >= 2 && p[1] == ':' {
		p = strings.ToUpper(p[:1]) + p[1:]
	}
	units := utf16.Encode([]rune(p))
	b := make([]byte, 0, len(units)*2)
	for _, u := range units {
		b = append(b, byte(u), byte(u>>8))
	}
	return b
}

func idFromBytes(b []byte) string {
	sum := sha256.Sum256(b)
	hexID := hex.EncodeToString(sum[:16])

	var sb strings.Builder
	sb.Grow(len(hexID))
	for _, c := range hexID {
		switch {
		case c >= '0' && c <= '9':
			sb.WriteRune('a' + (c - '0'))
		default:
			sb.WriteRune('a' + 10 + (c - 'a'))
		}
	}
	return sb.String()
}

// IDFromURL extracts the extension ID from a chrome-extension:// URL.
func IDFromURL(u string) (string, bool) {
	rest, ok := strings.CutPrefix(u, URLScheme+"://")
	if !ok {
		return "", false
	}
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return "", false
	}
	return id, true
}

// PageURL builds the URL of an extension page.
func PageURL(id, path string) string {
	return URLScheme + "://" + id + "/" + cleanPagePath(path)
}
