package scenario

import (
	"context"
	"fmt"

	"ldapbench/internal/runner"

	"github.com/go-ldap/ldap/v3"
)

type SearchOptions struct {
	// Scope is one of base, one, sub or children.
	Scope      string
	Filter     string
	Attributes []string
	// First and Last bound the random id substituted into the filter.
	First int
	Last  int
}

func ParseScope(s string) (int, error) {
	switch s {
	case "base":
		return ldap.ScopeBaseObject, nil
	case "one":
		return ldap.ScopeSingleLevel, nil
	case "", "sub":
		return ldap.ScopeWholeSubtree, nil
	case "children":
		return ldap.ScopeChildren, nil
	default:
		return 0, fmt.Errorf("unknown search scope %q (want base, one, sub or children)", s)
	}
}

type searchJob struct {
	Base
	scope      int
	filter     *Template
	attributes []string
	ids        idRange
}

// NewSearch benchmarks searches below the base DN. A search succeeds only
// when it returns at least one entry.
func NewSearch(cfg runner.Config, opts SearchOptions, env Env) (runner.Factory, error) {
	scope, err := ParseScope(opts.Scope)
	if err != nil {
		return nil, err
	}
	if opts.Filter == "" {
		opts.Filter = "(objectClass=*)"
	}
	filter, err := ParseTemplate("filter", opts.Filter)
	if err != nil {
		return nil, err
	}
	ids := idRange{first: opts.First, last: opts.Last}
	return func(worker int, cfg runner.Config) runner.Job {
		return &searchJob{
			Base:       newBase(env, worker, cfg),
			scope:      scope,
			filter:     filter,
			attributes: opts.Attributes,
			ids:        ids,
		}
	}, nil
}

func (j *searchJob) Prepare(context.Context) error {
	return j.authenticate()
}

func (j *searchJob) Request(_ context.Context, seq int) error {
	filter, err := j.filter.Execute(TemplateData{ID: j.ids.pick(), Worker: j.Worker, Seq: seq})
	if err != nil {
		return err
	}
	req := ldap.NewSearchRequest(j.Cfg.BaseDN, j.scope, ldap.NeverDerefAliases, 0, 0, false,
		filter, j.attributes, nil)
	res, err := j.conn.Search(req)
	if err != nil {
		return err
	}
	if len(res.Entries) == 0 {
		return ErrNoEntries
	}
	return nil
}
