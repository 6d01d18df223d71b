package scenario

import (
	"context"

	"ldapbench/internal/runner"
)

// BindOptions picks the DN of every bind at random in [First, Last] when the
// bind DN template contains an id verb.
type BindOptions struct {
	First int
	Last  int
}

type bindJob struct {
	Base
	dn  *Template
	ids idRange
}

// NewBind benchmarks simple binds. The connection is not bound during
// prepare; every request rebinds it.
func NewBind(cfg runner.Config, opts BindOptions, env Env) (runner.Factory, error) {
	dn, err := ParseTemplate("bind-dn", cfg.BindDN)
	if err != nil {
		return nil, err
	}
	ids := idRange{first: opts.First, last: opts.Last}
	return func(worker int, cfg runner.Config) runner.Job {
		return &bindJob{Base: newBase(env, worker, cfg), dn: dn, ids: ids}
	}, nil
}

func (j *bindJob) Request(_ context.Context, seq int) error {
	id := j.ids.first
	if j.dn.UsesID() {
		id = j.ids.pick()
	}
	dn, err := j.dn.Execute(TemplateData{ID: id, Worker: j.Worker, Seq: seq})
	if err != nil {
		return err
	}
	return j.conn.Bind(dn, j.Cfg.BindPassword)
}
