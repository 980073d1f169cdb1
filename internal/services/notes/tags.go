package notes

import (
	"regexp"
	"strings"
)

var (
	tagPattern     = regexp.MustCompile(`^[a-z0-9_-]{1,30}$`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
)

// NormalizeTags lowercases, validates, and deduplicates explicit tags, then
// merges in hashtags found in the note content. First-seen order is kept so
// the stored set is stable across saves.
func NormalizeTags(explicit []string, content string) ([]string, error) {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(explicit))

	add := func(tag string) error {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			return nil
		}
		if !tagPattern.MatchString(tag) {
			return ErrInvalidTag
		}
		if _, ok := seen[tag]; ok {
			return nil
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		return nil
	}

	for _, tag := range explicit {
		if err := add(tag); err != nil {
			return nil, err
		}
	}

	// Hashtags come from free text, so silently skip the ones that do not
	// survive normalization instead of failing the whole request.
	for _, m := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		tag := strings.ToLower(m[1])
		if !tagPattern.MatchString(tag) {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	return out, nil
}
