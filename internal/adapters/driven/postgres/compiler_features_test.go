package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/query"
)

type compileFeature struct {
	cfg      *domain.IndexConfig
	compiled *domain.CompiledQuery
	second   *domain.CompiledQuery
	err      error
}

func (f *compileFeature) anIndex(name, fields, filterFields string) error {
	f.cfg = testIndex()
	f.cfg.Name = name
	f.cfg.Table = name
	f.cfg.Fields = splitList(fields)
	f.cfg.FilterFields = splitList(filterFields)
	return nil
}

func (f *compileFeature) compile(body *godog.DocString) error {
	var req query.Request
	if err := json.Unmarshal([]byte(body.Content), &req); err != nil {
		f.err = err
		return nil
	}
	f.compiled, f.err = NewCompiler().Compile(req, f.cfg)
	return nil
}

func (f *compileFeature) compileTwice(body *godog.DocString) error {
	if err := f.compile(body); err != nil {
		return err
	}
	first := f.compiled

	var req query.Request
	if err := json.Unmarshal([]byte(body.Content), &req); err != nil {
		return err
	}
	f.second, f.err = NewCompiler().Compile(req, f.cfg.Clone())
	f.compiled = first
	return nil
}

func (f *compileFeature) succeeds() error {
	if f.err != nil {
		return fmt.Errorf("expected compilation to succeed: %w", f.err)
	}
	return nil
}

func (f *compileFeature) failsNaming(field string) error {
	var vErr *domain.ValidationError
	if !errors.As(f.err, &vErr) {
		return fmt.Errorf("expected a validation error, got %v", f.err)
	}
	if vErr.Field != field {
		return fmt.Errorf("expected field %q, got %q", field, vErr.Field)
	}
	return nil
}

func (f *compileFeature) whereContains(s string) error {
	if !strings.Contains(f.compiled.WhereClause, s) {
		return fmt.Errorf("where clause %q does not contain %q", f.compiled.WhereClause, s)
	}
	return nil
}

func (f *compileFeature) whereContainsDoc(doc *godog.DocString) error {
	return f.whereContains(strings.TrimSpace(doc.Content))
}

func (f *compileFeature) whereNotContains(s string) error {
	if strings.Contains(f.compiled.WhereClause, s) {
		return fmt.Errorf("where clause %q contains %q", f.compiled.WhereClause, s)
	}
	return nil
}

func (f *compileFeature) statementContains(s string) error {
	if !strings.Contains(f.compiled.Expression, s) {
		return fmt.Errorf("statement %q does not contain %q", f.compiled.Expression, s)
	}
	return nil
}

func (f *compileFeature) statementNotContains(s string) error {
	if strings.Contains(f.compiled.Expression, s) {
		return fmt.Errorf("statement %q contains %q", f.compiled.Expression, s)
	}
	return nil
}

func (f *compileFeature) paramCount(n int) error {
	if len(f.compiled.Params) != n {
		return fmt.Errorf("expected %d parameters, got %v", n, f.compiled.Params)
	}
	return nil
}

func (f *compileFeature) paramIs(n int, want string) error {
	if n < 1 || n > len(f.compiled.Params) {
		return fmt.Errorf("no parameter %d in %v", n, f.compiled.Params)
	}
	if got := f.compiled.Params[n-1]; got != want {
		return fmt.Errorf("parameter %d is %v, want %q", n, got, want)
	}
	return nil
}

func (f *compileFeature) orderByIs(want string) error {
	if f.compiled.OrderBy != want {
		return fmt.Errorf("order by %q, want %q", f.compiled.OrderBy, want)
	}
	return nil
}

func (f *compileFeature) pagination(limit, offset int) error {
	if f.compiled.Limit != limit || f.compiled.Offset != offset {
		return fmt.Errorf("got limit %d offset %d", f.compiled.Limit, f.compiled.Offset)
	}
	if !strings.HasSuffix(f.compiled.Expression, fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)) {
		return fmt.Errorf("statement does not end with the pagination: %q", f.compiled.Expression)
	}
	return nil
}

func (f *compileFeature) identical() error {
	if f.err != nil {
		return f.err
	}
	if !reflect.DeepEqual(f.compiled, f.second) {
		return fmt.Errorf("compilations differ:\n%+v\n%+v", f.compiled, f.second)
	}
	return nil
}

func initializeCompileScenario(sc *godog.ScenarioContext) {
	f := &compileFeature{}
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*f = compileFeature{}
		return ctx, nil
	})

	sc.Step(`^an index "([^"]*)" with fields "([^"]*)" and filter fields "([^"]*)"$`, f.anIndex)
	sc.Step(`^I compile the request:$`, f.compile)
	sc.Step(`^I compile the request twice:$`, f.compileTwice)
	sc.Step(`^compilation succeeds$`, f.succeeds)
	sc.Step(`^compilation fails naming the field "([^"]*)"$`, f.failsNaming)
	sc.Step(`^the where clause contains "(.*)"$`, func(s string) error { return f.whereContains(unescape(s)) })
	sc.Step(`^the where clause contains:$`, f.whereContainsDoc)
	sc.Step(`^the where clause does not contain "(.*)"$`, func(s string) error { return f.whereNotContains(unescape(s)) })
	sc.Step(`^the statement contains "(.*)"$`, func(s string) error { return f.statementContains(unescape(s)) })
	sc.Step(`^the statement does not contain "(.*)"$`, func(s string) error { return f.statementNotContains(unescape(s)) })
	sc.Step(`^there is (\d+) bound parameters?$`, f.paramCount)
	sc.Step(`^parameter (\d+) is "([^"]*)"$`, f.paramIs)
	sc.Step(`^the order by is "(.*)"$`, func(s string) error { return f.orderByIs(unescape(s)) })
	sc.Step(`^the limit is (\d+) and the offset is (\d+)$`, f.pagination)
	sc.Step(`^both compilations are identical$`, f.identical)
}

func TestCompileFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "postgres-compile",
		ScenarioInitializer: initializeCompileScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("compile feature scenarios failed")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\"`, `"`)
}
