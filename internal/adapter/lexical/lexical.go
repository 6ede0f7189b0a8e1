// Package lexical implements a deterministic multi-pattern matcher over the
// routing corpus using an Aho-Corasick automaton on runes.
package lexical

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Strob0t/taskgate/internal/domain/routing"
	"github.com/Strob0t/taskgate/internal/port/matcher"
)

type node struct {
	next    map[rune]int
	fail    int
	outputs []string // patterns ending here, including those reached via fail links
}

// Matcher is an Aho-Corasick automaton. It is safe for concurrent use;
// Build swaps the automaton atomically with respect to readers.
type Matcher struct {
	mu       sync.RWMutex
	nodes    []node
	patterns map[string]string // normalized pattern -> task
}

var _ matcher.Matcher = (*Matcher)(nil)

// New returns an empty matcher. Call Build before matching.
func New() *Matcher {
	return &Matcher{nodes: []node{newNode()}, patterns: map[string]string{}}
}

func newNode() node {
	return node{next: map[rune]int{}}
}

// Build compiles the automaton from items. Empty texts are skipped; when
// the same pattern appears twice the first task wins.
func (m *Matcher) Build(items []routing.ReferenceItem) error {
	nodes := []node{newNode()}
	patterns := make(map[string]string, len(items))

	for _, it := range items {
		pat := matcher.Normalize(it.Text)
		if pat == "" {
			continue
		}
		cur := 0
		for _, r := range pat {
			nxt, ok := nodes[cur].next[r]
			if !ok {
				nxt = len(nodes)
				nodes[cur].next[r] = nxt
				nodes = append(nodes, newNode())
			}
			cur = nxt
		}
		nodes[cur].outputs = append(nodes[cur].outputs, pat)
		if _, seen := patterns[pat]; !seen {
			patterns[pat] = it.Task
		}
	}

	buildFailureLinks(nodes)

	m.mu.Lock()
	m.nodes = nodes
	m.patterns = patterns
	m.mu.Unlock()
	return nil
}

// buildFailureLinks computes fail transitions breadth-first and merges each
// node's fail target outputs into its own.
func buildFailureLinks(nodes []node) {
	queue := make([]int, 0, len(nodes))
	for _, child := range nodes[0].next {
		nodes[child].fail = 0
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		for ch, s := range nodes[r].next {
			queue = append(queue, s)
			f := nodes[r].fail
			for f != 0 {
				if _, ok := nodes[f].next[ch]; ok {
					break
				}
				f = nodes[f].fail
			}
			nodes[s].fail = nodes[f].next[ch] // zero (root) when absent
			nodes[s].outputs = append(nodes[s].outputs, nodes[nodes[s].fail].outputs...)
		}
	}
}

// FindBestMatch scans text once and returns the longest pattern occurring
// in it. Ties keep the pattern emitted first. It never returns an error.
func (m *Matcher) FindBestMatch(_ context.Context, text string) (string, bool, error) {
	text = strings.ToLower(text)
	if text == "" {
		return "", false, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.patterns) == 0 {
		return "", false, nil
	}

	var best string
	bestLen := 0
	cur := 0
	for _, ch := range text {
		for cur != 0 {
			if _, ok := m.nodes[cur].next[ch]; ok {
				break
			}
			cur = m.nodes[cur].fail
		}
		cur = m.nodes[cur].next[ch] // zero (root) when absent
		for _, pat := range m.nodes[cur].outputs {
			if n := utf8.RuneCountInString(pat); n > bestLen {
				best, bestLen = pat, n
			}
		}
	}
	return best, bestLen > 0, nil
}

// TaskFor returns the task registered for a normalized pattern.
func (m *Matcher) TaskFor(text string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.patterns[text]
	return task, ok
}

// Available reports whether at least one pattern is loaded.
func (m *Matcher) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.patterns) > 0
}

// Len returns the number of distinct patterns.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.patterns)
}
