// Package topic matches incoming PUBLISH topic names against the filters a
// Client has registered with OnMessage, and validates topic names/filters before they
// go on the wire. A client only ever matches a handful of filters against
// one topic at a time, so matching is a plain level-by-level function
// rather than a shared trie index.
package topic

import "strings"

// Match reports whether topic satisfies filter under MQTT v5 §4.7's
// wildcard rules: '+' matches exactly one level, '#' (legal only as the
// final level) matches the rest of the topic, and a topic beginning with
// '$' never matches a filter containing either wildcard.
func Match(filter, topic string) bool {
	if strings.HasPrefix(topic, "$") && (strings.Contains(filter, "#") || strings.Contains(filter, "+")) {
		return false
	}
	if filter == topic {
		return true
	}
	return matchLevels(splitLevels(filter), splitLevels(topic))
}

func matchLevels(filterLevels, topicLevels []string) bool {
	fi, ti := 0, 0
	for fi < len(filterLevels) && ti < len(topicLevels) {
		switch filterLevels[fi] {
		case "#":
			return true
		case "+":
			fi++
			ti++
		default:
			if filterLevels[fi] != topicLevels[ti] {
				return false
			}
			fi++
			ti++
		}
	}
	if fi < len(filterLevels) {
		return len(filterLevels)-fi == 1 && filterLevels[fi] == "#"
	}
	return ti == len(topicLevels)
}

func splitLevels(s string) []string {
	if len(s) == 0 {
		return []string{}
	}
	levels := make([]string, 0, 8)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			levels = append(levels, s[start:i])
			start = i + 1
		}
	}
	return append(levels, s[start:])
}
