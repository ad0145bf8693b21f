package pagecache

import "regexp"

var (
	htmlComment    = regexp.MustCompile(`<!--[\s\S]*?-->`)
	spaceAfterTag  = regexp.MustCompile(`>\s+`)
	spaceBeforeTag = regexp.MustCompile(`\s+<`)
)

// Minify strips HTML comments and collapses whitespace runs adjacent to
// tags to a single space. Minify(Minify(s)) == Minify(s).
func Minify(s string) string {
	for {
		stripped := htmlComment.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	s = spaceAfterTag.ReplaceAllString(s, "> ")
	return spaceBeforeTag.ReplaceAllString(s, " <")
}
