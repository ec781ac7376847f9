package exam

import (
	"sort"
	"strings"
)

// AnswerKey maps (subject, question) to the accepted option(s) for one
// session. A key entry may list several acceptable options (dash-delimited in
// the source sheets); any one of them counts as correct. Built once per
// session by the ingestion adapter and treated as immutable afterwards.
type AnswerKey struct {
	entries map[QuestionRef][]string
}

func NewAnswerKey() *AnswerKey {
	return &AnswerKey{entries: map[QuestionRef][]string{}}
}

// Add registers the accepted option(s) for ref. raw may be a single option or
// a dash-delimited union like "A-C". Blank entries are ignored.
func (k *AnswerKey) Add(ref QuestionRef, raw string) {
	var opts []string
	for _, p := range strings.Split(raw, "-") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			opts = append(opts, p)
		}
	}
	if len(opts) > 0 {
		k.entries[ref] = opts
	}
}

// Options returns the accepted options for ref, nil if the key has no entry.
func (k *AnswerKey) Options(ref QuestionRef) []string {
	return k.entries[ref]
}

// Display renders the key entry the way the source sheets write it ("A-C").
func (k *AnswerKey) Display(ref QuestionRef) string {
	return strings.Join(k.entries[ref], "-")
}

// Accepts reports whether the normalized answer matches any accepted option.
// A blank answer never matches.
func (k *AnswerKey) Accepts(ref QuestionRef, answer string) bool {
	answer = strings.ToUpper(strings.TrimSpace(answer))
	if answer == "" {
		return false
	}
	for _, opt := range k.entries[ref] {
		if answer == opt {
			return true
		}
	}
	return false
}

// Refs lists every keyed question ordered by subject then number, so grading
// and calibration walk the exam in a stable order.
func (k *AnswerKey) Refs() []QuestionRef {
	refs := make([]QuestionRef, 0, len(k.entries))
	for ref := range k.entries {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Subject != refs[j].Subject {
			return refs[i].Subject < refs[j].Subject
		}
		return refs[i].Number < refs[j].Number
	})
	return refs
}

func (k *AnswerKey) Len() int { return len(k.entries) }
