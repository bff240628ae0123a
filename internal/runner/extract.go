package runner

import (
	"encoding/json"
	"strings"
)

// ExtractTrailingJSON recovers the final JSON document from worker output
// that freely mixes diagnostic lines with the result. Workers print log
// noise before the result, and the result itself may be pretty-printed
// across several lines, so the scan walks candidate start lines backward
// from the end and grows each candidate forward until a parse succeeds.
//
// The policy is deterministic over a fixed transcript:
//
//  1. Trim the whole buffer, split it into lines.
//  2. From the last line to the first, take each line whose trimmed form
//     starts with "{" as a candidate document start.
//  3. Append the following lines one at a time, reparsing after each
//     append; the first successful parse is the result.
//  4. If no candidate ever parses, extraction fails.
//
// A "{"-prefixed line that is valid JSON on its own satisfies step 3
// immediately. The heuristic is known to be fragile: a late diagnostic
// line that happens to be valid JSON would win over the real result.
func ExtractTrailingJSON(output []byte) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return nil, false
	}

	lines := strings.Split(trimmed, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "{") {
			continue
		}

		candidate := lines[i]
		for j := i + 1; ; j++ {
			if doc := strings.TrimSpace(candidate); json.Valid([]byte(doc)) {
				return json.RawMessage(doc), true
			}
			if j >= len(lines) {
				break
			}
			candidate += "\n" + lines[j]
		}
	}
	return nil, false
}
