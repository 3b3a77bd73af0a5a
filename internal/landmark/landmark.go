// Package landmark finds anchor byte sequences inside firmware blobs whose
// layout is not documented anywhere.
//
// A Landmark is an ordered list of literal candidates. The first candidate
// that occurs in the image wins, so older and newer firmware spellings of the
// same anchor can live side by side in one definition.
package landmark

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("landmark not found")

type Landmark struct {
	Name       string
	Candidates [][]byte

	// FromEnd searches for the last occurrence instead of the first one.
	// Anchors that live near the tail of a large image are found faster
	// this way.
	FromEnd bool
}

// Strings builds a Landmark from string literals.
func Strings(name string, fromEnd bool, candidates ...string) Landmark {
	lm := Landmark{
		Name:    name,
		FromEnd: fromEnd,
	}

	for _, c := range candidates {
		lm.Candidates = append(lm.Candidates, []byte(c))
	}

	return lm
}

// Match describes where a Landmark was found.
type Match struct {
	Offset int

	// Index is the position of the matching candidate in
	// Landmark.Candidates.
	Index   int
	Pattern []byte
}

func (o Match) End() int {
	return o.Offset + len(o.Pattern)
}

// Locate returns the first candidate of lm that occurs in img.
func Locate(img []byte, lm Landmark) (Match, error) {
	for i, candidate := range lm.Candidates {
		if len(candidate) == 0 {
			continue
		}

		var idx int
		if lm.FromEnd {
			idx = bytes.LastIndex(img, candidate)
		} else {
			idx = bytes.Index(img, candidate)
		}

		if idx == -1 {
			continue
		}

		return Match{
			Offset:  idx,
			Index:   i,
			Pattern: candidate,
		}, nil
	}

	return Match{}, &NotFoundError{
		Landmark:   lm.Name,
		Candidates: lm.Candidates,
	}
}

// Count returns the number of non-overlapping occurrences of pattern in img.
func Count(img []byte, pattern []byte) int {
	if len(pattern) == 0 {
		return 0
	}

	return bytes.Count(img, pattern)
}

// NotFoundError reports that none of a landmark's candidates occur in an
// image.
type NotFoundError struct {
	Landmark   string
	Candidates [][]byte

	// Detail is optional extra context, such as the offsets that were
	// tried by a magic scan.
	Detail string
}

func (e *NotFoundError) Error() string {
	quoted := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		quoted[i] = describe(c)
	}

	msg := fmt.Sprintf("%s: %s not found (tried %s)",
		ErrNotFound, e.Landmark, strings.Join(quoted, ", "))
	if e.Detail != "" {
		msg += " - " + e.Detail
	}

	return msg
}

func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// describe renders printable candidates as quoted strings and binary magics
// as hex.
func describe(b []byte) string {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%x", b)
		}
	}

	return fmt.Sprintf("%q", b)
}
