package toolround

import "text/template"

// defaultFuncMap returns the template.FuncMap used when rendering system content.
func defaultFuncMap(tc TokenCounter) template.FuncMap {
	if tc == nil {
		tc = &CharFallbackCounter{}
	}
	return template.FuncMap{
		"tail_tokens": makeTailTokens(tc),
	}
}

// makeTailTokens returns a function keeping the longest suffix of text that fits in maxTokens.
// Prior conversation is most useful at its end, so context limits keep the tail.
func makeTailTokens(tc TokenCounter) func(string, int) (string, error) {
	return func(text string, maxTokens int) (string, error) {
		if maxTokens <= 0 {
			return "", nil
		}
		n, err := tc.Count(text)
		if err != nil {
			return "", err
		}
		if n <= maxTokens {
			return text, nil
		}
		runes := []rune(text)
		lo, hi := 0, len(runes)
		for lo < hi {
			mid := (lo + hi + 1) / 2
			n, err := tc.Count(string(runes[len(runes)-mid:]))
			if err != nil {
				return "", err
			}
			if n <= maxTokens {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return string(runes[len(runes)-lo:]), nil
	}
}
