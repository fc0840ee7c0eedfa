package downloads

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var cueTiming = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[,.]\d{3} --> \d{2}:\d{2}:\d{2}[,.]\d{3}`)

// Validate checks that the file at path looks like a subtitle file in the
// given format ("txt", "srt" or "vtt").
func Validate(path, format string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s is empty", path)
	}

	switch strings.ToLower(format) {
	case "txt", "":
		return nil
	case "vtt":
		if !bytes.HasPrefix(data, []byte("WEBVTT")) {
			return fmt.Errorf("%s: missing WEBVTT header", path)
		}
		if countCues(data, '.') == 0 {
			return fmt.Errorf("%s: no cues", path)
		}
		return nil
	case "srt":
		if countCues(data, ',') == 0 {
			return fmt.Errorf("%s: no cues", path)
		}
		return nil
	default:
		return fmt.Errorf("unknown subtitle format %q", format)
	}
}

// countCues counts timing lines whose millisecond separator is sep.
func countCues(data []byte, sep byte) int {
	n := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if cueTiming.MatchString(line) && line[8] == sep {
			n++
		}
	}
	return n
}
