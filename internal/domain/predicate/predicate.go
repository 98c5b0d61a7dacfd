// Package predicate implements the query_must relevance language: a passage
// declares terms a question must mention for the passage to be useful.
package predicate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind names a clause operator.
type Kind string

// Clause operators, in evaluation order.
const (
	KindContainOneOf Kind = "contain_one_of"
	KindContainAllOf Kind = "contain_all_of"
	KindContain      Kind = "contain"
	KindContainRange Kind = "contain_range"
)

// ErrMalformed is returned by Parse for predicates or clauses that cannot be interpreted.
var ErrMalformed = errors.New("malformed predicate")

var digitRun = regexp.MustCompile(`\d+`)

// Clause is one requirement. All clauses of a predicate must hold.
type Clause interface {
	Kind() Kind
	// matches receives the lower-cased question.
	matches(q string) bool
}

// Contain requires a single term, allowing a trailing plural "s".
type Contain struct {
	term string
	re   *regexp.Regexp
}

// NewContain compiles a contain clause.
func NewContain(term string) (Contain, error) {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return Contain{}, fmt.Errorf("%w: empty contain term", ErrMalformed)
	}
	return Contain{term: t, re: regexp.MustCompile(`\b` + regexp.QuoteMeta(t) + `s?\b`)}, nil
}

// Kind implements Clause.
func (c Contain) Kind() Kind { return KindContain }

// Term returns the lower-cased term.
func (c Contain) Term() string { return c.term }

func (c Contain) matches(q string) bool { return c.re.MatchString(q) }

// ContainAllOf requires every term as a whole word.
type ContainAllOf struct {
	terms []string
	res   []*regexp.Regexp
}

// NewContainAllOf compiles a contain_all_of clause.
func NewContainAllOf(terms []string) (ContainAllOf, error) {
	c := ContainAllOf{}
	for _, term := range terms {
		t := strings.ToLower(term)
		if strings.TrimSpace(t) == "" {
			return ContainAllOf{}, fmt.Errorf("%w: empty contain_all_of term", ErrMalformed)
		}
		c.terms = append(c.terms, t)
		c.res = append(c.res, wordPattern(t))
	}
	return c, nil
}

// Kind implements Clause.
func (c ContainAllOf) Kind() Kind { return KindContainAllOf }

// Terms returns the lower-cased terms.
func (c ContainAllOf) Terms() []string { return c.terms }

func (c ContainAllOf) matches(q string) bool {
	for _, re := range c.res {
		if !re.MatchString(q) {
			return false
		}
	}
	return true
}

// ContainOneOf is an AND of OR-groups: each group needs at least one whole-word term.
// An empty group can never be satisfied.
type ContainOneOf struct {
	groups [][]string
	res    [][]*regexp.Regexp
}

// NewContainOneOf compiles a contain_one_of clause.
func NewContainOneOf(groups [][]string) (ContainOneOf, error) {
	c := ContainOneOf{}
	for _, group := range groups {
		terms := make([]string, 0, len(group))
		res := make([]*regexp.Regexp, 0, len(group))
		for _, term := range group {
			t := strings.ToLower(term)
			if strings.TrimSpace(t) == "" {
				return ContainOneOf{}, fmt.Errorf("%w: empty contain_one_of term", ErrMalformed)
			}
			terms = append(terms, t)
			res = append(res, wordPattern(t))
		}
		c.groups = append(c.groups, terms)
		c.res = append(c.res, res)
	}
	return c, nil
}

// Kind implements Clause.
func (c ContainOneOf) Kind() Kind { return KindContainOneOf }

// Groups returns the lower-cased term groups.
func (c ContainOneOf) Groups() [][]string { return c.groups }

func (c ContainOneOf) matches(q string) bool {
	for _, group := range c.res {
		matched := false
		for _, re := range group {
			if re.MatchString(q) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// ContainRange requires some integer in the question within [Min, Max].
type ContainRange struct {
	min, max float64
}

// NewContainRange creates an inclusive range clause.
func NewContainRange(minVal, maxVal float64) ContainRange {
	return ContainRange{min: minVal, max: maxVal}
}

// Kind implements Clause.
func (c ContainRange) Kind() Kind { return KindContainRange }

// Bounds returns the inclusive bounds.
func (c ContainRange) Bounds() (minVal, maxVal float64) { return c.min, c.max }

func (c ContainRange) matches(q string) bool {
	for _, run := range digitRun.FindAllString(q, -1) {
		n, err := strconv.ParseInt(run, 10, 64)
		if err != nil {
			continue
		}
		if v := float64(n); v >= c.min && v <= c.max {
			return true
		}
	}
	return false
}

func wordPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
}

// Predicate is a conjunction of clauses. The zero value always passes.
type Predicate struct {
	clauses []Clause
}

// New builds a predicate from clauses.
func New(clauses ...Clause) Predicate {
	return Predicate{clauses: clauses}
}

// Clauses returns the clauses in evaluation order.
func (p Predicate) Clauses() []Clause { return p.clauses }

// IsEmpty reports whether the predicate has no clauses.
func (p Predicate) IsEmpty() bool { return len(p.clauses) == 0 }

// Evaluate reports whether the question satisfies every clause. Case-insensitive.
func (p Predicate) Evaluate(question string) bool {
	_, ok := p.FirstFailure(question)
	return !ok
}

// FirstFailure returns the kind of the first clause the question fails.
func (p Predicate) FirstFailure(question string) (Kind, bool) {
	q := strings.ToLower(question)
	for _, c := range p.clauses {
		if !c.matches(q) {
			return c.Kind(), true
		}
	}
	return "", false
}

type wireRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// Parse reads a query_must value as stored in passage metadata: a JSON
// string, raw bytes, or an already-decoded map. Absent values yield an empty predicate.
//
// Clauses are decoded independently. A malformed clause is left out of the
// returned predicate and reported in the error; the remaining clauses still apply.
func Parse(raw any) (Predicate, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return Predicate{}, nil
	case Predicate:
		return v, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return Predicate{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		data = b
	default:
		return Predicate{}, fmt.Errorf("%w: unsupported type %T", ErrMalformed, raw)
	}

	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" || s == "{}" {
		return Predicate{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return Predicate{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var (
		clauses []Clause
		errs    []error
	)
	for _, kind := range []Kind{KindContainOneOf, KindContainAllOf, KindContain, KindContainRange} {
		field, ok := fields[string(kind)]
		if !ok || isNull(field) {
			continue
		}
		c, err := decodeClause(kind, field)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		clauses = append(clauses, c)
	}
	return Predicate{clauses: clauses}, errors.Join(errs...)
}

func decodeClause(kind Kind, data json.RawMessage) (Clause, error) {
	switch kind {
	case KindContainOneOf:
		var groups [][]string
		if err := json.Unmarshal(data, &groups); err != nil {
			return nil, malformed(kind, err)
		}
		c, err := NewContainOneOf(groups)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindContainAllOf:
		var terms []string
		if err := json.Unmarshal(data, &terms); err != nil {
			return nil, malformed(kind, err)
		}
		c, err := NewContainAllOf(terms)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindContain:
		term, err := scalarText(data)
		if err != nil {
			return nil, malformed(kind, err)
		}
		c, err := NewContain(term)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindContainRange:
		var r wireRange
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, malformed(kind, err)
		}
		if r.Min == nil || r.Max == nil {
			return nil, fmt.Errorf("%w: contain_range needs min and max", ErrMalformed)
		}
		return NewContainRange(*r.Min, *r.Max), nil
	default:
		return nil, fmt.Errorf("%w: unknown clause %s", ErrMalformed, kind)
	}
}

// scalarText renders a JSON string, number or bool as the term text.
// Numbers keep their literal form, so 7 becomes "7".
func scalarText(data json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("want a scalar, got %T", v)
	}
}

func isNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func malformed(kind Kind, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformed, kind, err)
}

// Satisfied parses raw and evaluates it against the question.
// Malformed clauses pass; the well-formed ones are still enforced.
func Satisfied(question string, raw any) bool {
	p, _ := Parse(raw)
	return p.Evaluate(question)
}
