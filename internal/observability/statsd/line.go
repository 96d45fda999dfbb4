package statsd

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// tagReplacer strips characters that would break the DogStatsD tag section.
var tagReplacer = strings.NewReplacer("|", "_", ",", "_", "#", "_", "\n", "_")

// nameReplacer keeps metric names to dotted, underscore-separated segments.
var nameReplacer = strings.NewReplacer(" ", "_", "/", "_", ":", "_", "|", "_", "@", "_")

func counterValue(v int64) string { return strconv.FormatInt(v, 10) + "|c" }

func gaugeValue(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) + "|g" }

func timingValue(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	return strconv.FormatFloat(ms, 'f', -1, 64) + "|ms"
}

// encodeLine renders "<prefix>.<name>:<value>|#k:v,..." with tags sorted by key.
// Local tags override global ones. ok is false when name is empty.
func encodeLine(prefix, name, value string, global, local map[string]string) (string, bool) {
	metric := metricName(prefix, name)
	if metric == "" {
		return "", false
	}

	var b strings.Builder
	b.WriteString(metric)
	b.WriteByte(':')
	b.WriteString(value)

	merged := mergeTags(global, local)
	if len(merged) == 0 {
		return b.String(), true
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	b.WriteString("|#")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(merged[k])
	}
	return b.String(), true
}

func metricName(prefix, name string) string {
	n := normalizeName(name)
	if n == "" {
		return ""
	}
	if prefix == "" {
		return n
	}
	return prefix + "." + n
}

func normalizeName(name string) string {
	n := nameReplacer.Replace(strings.TrimSpace(name))
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

func trimPrefix(prefix string) string {
	return normalizeName(prefix)
}

func mergeTags(global, local map[string]string) map[string]string {
	if len(global)+len(local) == 0 {
		return nil
	}
	out := cleanTags(global)
	for k, v := range cleanTags(local) {
		out[k] = v
	}
	return out
}

// cleanTags copies tags, trimming whitespace, dropping empty keys and
// replacing characters reserved by the line protocol.
func cleanTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		key := tagReplacer.Replace(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		out[key] = tagReplacer.Replace(strings.TrimSpace(v))
	}
	return out
}
