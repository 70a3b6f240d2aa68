package main

import (
	"bytes"
	"regexp"
)

type verdict int

const (
	running verdict = iota
	passed
	failed
)

var (
	// failure summary: "Failed <n> tests"
	defaultFailRe = regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)
	// test markers like "11:01"
	stageRe = regexp.MustCompile(`\b(\d{2}:\d{2})\b`)
)

// serialWatch collects the link-port output of a test ROM and decides
// whether it reported success or failure.
type serialWatch struct {
	until  []byte // lowercased pass marker; nil disables
	failRe *regexp.Regexp
	out    bytes.Buffer

	// last N bytes for diagnostics on fail
	ring     []byte
	ringIdx  int
	ringFill int
}

func newSerialWatch(until string, failRe *regexp.Regexp, window int) *serialWatch {
	w := &serialWatch{failRe: failRe, ring: make([]byte, max(window, 256))}
	if until != "" {
		w.until = bytes.ToLower([]byte(until))
	}
	return w
}

func (w *serialWatch) Write(p []byte) (int, error) {
	w.out.Write(p)
	for _, ch := range p {
		w.ring[w.ringIdx] = ch
		w.ringIdx = (w.ringIdx + 1) % len(w.ring)
		w.ringFill = min(w.ringFill+1, len(w.ring))
	}
	return len(p), nil
}

func (w *serialWatch) watching() bool { return w.until != nil || w.failRe != nil }

// Verdict reports the outcome so far and the matched text.
func (w *serialWatch) Verdict() (verdict, string) {
	s := w.out.Bytes()
	if w.failRe != nil {
		if m := w.failRe.Find(s); m != nil {
			return failed, string(m)
		}
	}
	if w.until != nil {
		low := bytes.ToLower(s)
		if i := bytes.Index(low, w.until); i >= 0 {
			return passed, string(low[i : i+len(w.until)])
		}
	}
	return running, ""
}

// LastStage returns the last "NN:NN" marker printed.
func (w *serialWatch) LastStage() string {
	mm := stageRe.FindAll(w.out.Bytes(), -1)
	if len(mm) == 0 {
		return ""
	}
	return string(mm[len(mm)-1])
}

// Recent returns the retained tail of the output in order.
func (w *serialWatch) Recent() []byte {
	out := make([]byte, 0, w.ringFill)
	start := (w.ringIdx - w.ringFill + len(w.ring)) % len(w.ring)
	for j := range w.ringFill {
		out = append(out, w.ring[(start+j)%len(w.ring)])
	}
	return out
}
