// Package kernelio implements the plain-text rules file format of
// SPEC_FULL.md §8: a single top-level sequence of keyed expressions
// separated by whitespace. The file carries no products; products are
// always re-derived by resolution after a load. This replaces the
// teacher's internal/store.Store, which persisted a single expression
// per name through a SQL backend; here the whole rules Context is one
// file and the backend is a plain io.Writer/io.Reader.
package kernelio

import (
	"fmt"
	"io"
	"os"
	"strings"

	rctx "crtkernel/internal/context"
	"crtkernel/internal/parser"
	"crtkernel/internal/value"
)

// Load parses r as a sequence of top-level parts, drops any part whose
// key is empty, and inserts the survivors into a fresh Context in
// source order. It fails on the first parse error or cycle, exactly as
// the component insert contract requires: no partial state is left
// behind by a failing load.
func Load(r io.Reader) (rctx.Context, error) {
	parts, err := parser.ParseTopLevelParts(r)
	if err != nil {
		return rctx.New(), fmt.Errorf("kernelio: %w", err)
	}
	rules := rctx.New()
	for _, e := range parts {
		if e.Key() == "" {
			continue
		}
		rules, err = rules.Insert(e)
		if err != nil {
			return rctx.New(), fmt.Errorf("kernelio: loading %q: %w", e.Key(), err)
		}
	}
	return rules, nil
}

// LoadString is Load over an in-memory source string.
func LoadString(src string) (rctx.Context, error) {
	return Load(strings.NewReader(src))
}

// LoadFile is Load over the file at path.
func LoadFile(path string) (rctx.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return rctx.New(), fmt.Errorf("kernelio: opening %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Save serializes rules as `key=unparse(value_without_key)` per item,
// separated by a single space, in rules' stable iteration order. A
// round trip through Load(Save(rules)) reproduces an equal Context
// modulo whitespace.
func Save(w io.Writer, rules rctx.Context) error {
	keys := rules.Keys()
	for i, k := range keys {
		v, _ := rules.Get(k)
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return fmt.Errorf("kernelio: writing separator: %w", err)
			}
		}
		line := k + "=" + value.UnparseUnkeyed(v)
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("kernelio: writing %q: %w", k, err)
		}
	}
	return nil
}

// SaveString is Save returning the serialized rules as a string.
func SaveString(rules rctx.Context) (string, error) {
	var sb strings.Builder
	if err := Save(&sb, rules); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// SaveFile is Save writing to the file at path, truncating it first.
func SaveFile(path string, rules rctx.Context) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("kernelio: creating %s: %w", path, err)
	}
	defer f.Close()
	return Save(f, rules)
}
