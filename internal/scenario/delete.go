package scenario

import (
	"context"

	"ldapbench/internal/runner"

	"github.com/go-ldap/ldap/v3"
)

type deleteJob struct {
	Base
	entries entries
}

func NewDelete(cfg runner.Config, opts EntryOptions, env Env) (runner.Factory, error) {
	ents, err := newEntries(opts, cfg)
	if err != nil {
		return nil, err
	}
	return func(worker int, cfg runner.Config) runner.Job {
		return &deleteJob{Base: newBase(env, worker, cfg), entries: ents}
	}, nil
}

func (j *deleteJob) Prepare(context.Context) error {
	return j.authenticate()
}

func (j *deleteJob) Request(_ context.Context, seq int) error {
	_, dn, err := j.entries.name(j.Worker, seq)
	if err != nil {
		return err
	}
	return j.conn.Del(ldap.NewDelRequest(dn, nil))
}
