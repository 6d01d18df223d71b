package scenario

import (
	"context"

	"ldapbench/internal/runner"

	"github.com/go-ldap/ldap/v3"
)

type ModifyOptions struct {
	EntryOptions
	Attr  string
	Value string
}

type modifyJob struct {
	Base
	entries entries
	attr    string
	value   string
}

// NewModify replaces one attribute value on every entry.
func NewModify(cfg runner.Config, opts ModifyOptions, env Env) (runner.Factory, error) {
	ents, err := newEntries(opts.EntryOptions, cfg)
	if err != nil {
		return nil, err
	}
	if opts.Attr == "" {
		opts.Attr = "sn"
	}
	if opts.Value == "" {
		opts.Value = "modified"
	}
	return func(worker int, cfg runner.Config) runner.Job {
		return &modifyJob{Base: newBase(env, worker, cfg), entries: ents, attr: opts.Attr, value: opts.Value}
	}, nil
}

func (j *modifyJob) Prepare(context.Context) error {
	return j.authenticate()
}

func (j *modifyJob) Request(_ context.Context, seq int) error {
	_, dn, err := j.entries.name(j.Worker, seq)
	if err != nil {
		return err
	}
	req := ldap.NewModifyRequest(dn, nil)
	req.Replace(j.attr, []string{j.value})
	return j.conn.Modify(req)
}
