// Package directive extracts the inline control tags the model writes into its replies.
//
// Two tags are recognised: [button: <label>] sets the label of the button above the chat,
// [mood: <0-100>] moves the trust gauge. Tags are removed from the text shown to the user.
package directive

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	buttonPattern = regexp.MustCompile(`\[button:\s*(.+?)\]`)
	moodPattern   = regexp.MustCompile(`\[mood:\s*(\d+)\]`)
)

const (
	MoodMin = 0
	MoodMax = 100
)

type Result struct {
	Text   string  `json:"text"`
	Button *string `json:"button,omitempty"`
	Mood   *int    `json:"mood,omitempty"`
}

// Parse returns text with every well-formed tag removed. Values come from the first
// [button: ...] and the first [mood: N] in the text as given; later ones are dropped, and
// so are tags that only appear once others are cut out. Tags that do not match, such as
// [mood: abc], stay in the text.
func Parse(text string) Result {
	var res Result

	if m := buttonPattern.FindStringSubmatch(text); m != nil {
		label := m[1]
		res.Button = &label
	}
	if m := moodPattern.FindStringSubmatch(text); m != nil {
		mood := parseMood(m[1])
		res.Mood = &mood
	}

	res.Text = strings.TrimSpace(strip(text))
	return res
}

// strip removes tags until none is left. Removing one tag can bring the halves of
// another together.
func strip(text string) string {
	for {
		changed := false
		for _, pattern := range []*regexp.Regexp{buttonPattern, moodPattern} {
			for loc := pattern.FindStringIndex(text); loc != nil; loc = pattern.FindStringIndex(text) {
				text = cut(text, loc[0], loc[1])
				changed = true
			}
		}
		if !changed {
			return text
		}
	}
}

func parseMood(digits string) int {
	n, err := strconv.Atoi(digits)
	if errors.Is(err, strconv.ErrRange) {
		return MoodMax
	}
	return clamp(n)
}

func clamp(n int) int {
	switch {
	case n < MoodMin:
		return MoodMin
	case n > MoodMax:
		return MoodMax
	}
	return n
}

// cut removes text[start:end] and closes the gap with at most one space.
func cut(text string, start, end int) string {
	before, after := text[:start], text[end:]
	left := strings.TrimRight(before, " \t")
	right := strings.TrimLeft(after, " \t")

	hadSpace := len(left) != len(before) || len(right) != len(after)
	switch {
	case left == "" || right == "":
		return left + right
	case strings.HasSuffix(left, "\n") || strings.HasPrefix(right, "\n") || strings.HasPrefix(right, "\r"):
		return left + right
	case strings.ContainsRune(".,!?;:)", rune(right[0])):
		return left + right
	case hadSpace:
		return left + " " + right
	}
	return left + right
}

// MoodLabel names a gauge value the way the chat page labels it.
func MoodLabel(mood int) string {
	switch {
	case mood < 20:
		return "Wary"
	case mood < 40:
		return "Curious"
	case mood < 60:
		return "Warming up"
	case mood < 80:
		return "Cozy"
	}
	return "Best friends"
}
