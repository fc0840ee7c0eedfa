package driver

// Extension options page selectors
// These are isolated here because the extension markup changes independently
// of the harness. Update these when the options page is redesigned.

const (
	VideoURLInput    = `#videoUrl`
	AutoGeneratedOpt = `#autoGenerated`
	ManualOpt        = `#manual`
	FormatTXT        = `#txt`
	FormatSRT        = `#srt`
	FormatVTT        = `#vtt`
	GetSubtitlesBtn  = `#getSubtitles`
	StatusBox        = `#status`
)

// UISelectors lists every element the scenarios interact with.
var UISelectors = []string{
	VideoURLInput,
	AutoGeneratedOpt,
	ManualOpt,
	FormatTXT,
	FormatSRT,
	FormatVTT,
	GetSubtitlesBtn,
	StatusBox,
}

// SubtitleTypeSelector maps a subtitle type to its radio button.
func SubtitleTypeSelector(kind string) string {
	if kind == "manual" {
		return ManualOpt
	}
	return AutoGeneratedOpt
}

// FormatSelector maps an output format to its radio button.
func FormatSelector(format string) string {
	switch format {
	case "srt":
		return FormatSRT
	case "vtt":
		return FormatVTT
	default:
		return FormatTXT
	}
}
