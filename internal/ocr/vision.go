package ocr

import (
	"fmt"
	"regexp"
	"strings"
)

// buildVisionPrompt asks a hosted model for a plain transcription.
func buildVisionPrompt(lang, extra string) string {
	var sb strings.Builder

	sb.WriteString("Transcribe all text visible in this image exactly as it appears. ")
	sb.WriteString("Keep the original reading order and line breaks. ")
	if lang != "" {
		sb.WriteString(fmt.Sprintf(
			"The text is expected to be in these Tesseract language codes: %s. ",
			lang,
		))
	}
	sb.WriteString("Do not translate, summarize, or describe the image. ")

	if extra != "" {
		sb.WriteString(extra)
		sb.WriteString(" ")
	}

	sb.WriteString("Return ONLY the transcribed text with no markdown formatting. ")
	sb.WriteString("If there is no text, return an empty response.")

	return sb.String()
}

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n?(.*?)\\n?```$")

// cleanTextResponse strips a surrounding markdown code fence and ends the
// text with a single newline, the way tesseract output ends.
func cleanTextResponse(s string) string {
	s = strings.TrimSpace(s)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if s == "" {
		return ""
	}
	return s + "\n"
}
