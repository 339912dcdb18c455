package store

// wildcardMatch implements the one-operator pattern language of
// SPEC_FULL.md §4.4.1: '*' matches zero or more of any byte, every other
// byte matches itself literally. It is the classic greedy match with
// one-level backtracking: lastStar remembers the most recent '*' in
// pattern, resumeTarget remembers where in target to resume after the
// next backtrack.
func wildcardMatch(pattern, target []byte) bool {
	p, t := 0, 0
	lastStar, resumeTarget := -1, 0

	for t < len(target) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			lastStar = p
			resumeTarget = t
			p++
		case p < len(pattern) && pattern[p] == target[t]:
			p++
			t++
		case lastStar != -1:
			p = lastStar + 1
			resumeTarget++
			t = resumeTarget
		default:
			return false
		}
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
