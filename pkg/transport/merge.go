// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"strings"
)

// configBlock is a top level statement and its indented body, kept verbatim
type configBlock struct {
	head string
	body []string
}

func (b *configBlock) key() string {
	return strings.Join(strings.Fields(b.head), " ")
}

func splitConfig(text string) []*configBlock {
	var blocks []*configBlock
	var cur *configBlock
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r \t")
		trimmed := strings.TrimLeft(raw, " \t")
		if trimmed == "" || trimmed == "!" {
			if raw == "!" {
				cur = nil
			}
			continue
		}
		if len(trimmed) == len(raw) {
			cur = &configBlock{head: raw}
			blocks = append(blocks, cur)
			continue
		}
		if cur != nil {
			cur.body = append(cur.body, raw)
		}
	}
	return blocks
}

// lineKey identifies the setting a body line configures: its depth and every word but the
// value
func lineKey(l string) string {
	f := strings.Fields(l)
	if len(f) > 1 {
		f = f[:len(f)-1]
	}
	depth := len(l) - len(strings.TrimLeft(l, " \t"))
	return strings.Repeat(" ", depth) + strings.Join(f, " ")
}

func negated(l string) (string, bool) {
	t := strings.TrimSpace(l)
	if strings.HasPrefix(t, "no ") {
		return strings.TrimSpace(t[3:]), true
	}
	return "", false
}

// MergeConfig applies candidate to a full running configuration and returns the complete
// configuration that results, for switches that only accept whole configurations.
//
// A top level "no X" deletes block X. Inside a block, "no X" deletes the lines starting
// with X. Any other candidate line replaces the line configuring the same setting, or is
// appended. Blocks the running configuration lacks are appended in candidate order.
func MergeConfig(running string, candidate string) string {
	blocks := splitConfig(running)
	index := func(key string) int {
		for i, b := range blocks {
			if b.key() == key {
				return i
			}
		}
		return -1
	}

	for _, c := range splitConfig(candidate) {
		if target, ok := negated(c.head); ok {
			if i := index(strings.Join(strings.Fields(target), " ")); i >= 0 {
				blocks = append(blocks[:i], blocks[i+1:]...)
			}
			continue
		}
		i := index(c.key())
		if i < 0 {
			b := &configBlock{head: c.head}
			for _, l := range c.body {
				if _, ok := negated(l); !ok {
					b.body = append(b.body, l)
				}
			}
			blocks = append(blocks, b)
			continue
		}
		b := blocks[i]
		for _, l := range c.body {
			if prefix, ok := negated(l); ok {
				b.body = removeLines(b.body, prefix)
				continue
			}
			b.body = setLine(b.body, l)
		}
	}

	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.head + "\n")
		for _, l := range b.body {
			sb.WriteString(l + "\n")
		}
		if len(b.body) > 0 {
			sb.WriteString("!\n")
		}
	}
	return sb.String()
}

func removeLines(body []string, prefix string) []string {
	kept := body[:0]
	want := strings.Fields(prefix)
	for _, l := range body {
		f := strings.Fields(l)
		if len(f) >= len(want) && strings.Join(f[:len(want)], " ") == strings.Join(want, " ") {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

func setLine(body []string, l string) []string {
	key := lineKey(l)
	for i, existing := range body {
		if lineKey(existing) == key {
			body[i] = l
			return body
		}
	}
	return append(body, l)
}
