package scenario

import (
	"context"

	"ldapbench/internal/runner"

	"github.com/go-ldap/ldap/v3"
)

type PassmodOptions struct {
	EntryOptions
	NewPassword string
	// OldPassword defaults to the bind password.
	OldPassword string
}

type passmodJob struct {
	Base
	entries     entries
	oldPassword string
	newPassword string
}

// NewPassmod benchmarks the password modify extended operation.
func NewPassmod(cfg runner.Config, opts PassmodOptions, env Env) (runner.Factory, error) {
	ents, err := newEntries(opts.EntryOptions, cfg)
	if err != nil {
		return nil, err
	}
	if opts.NewPassword == "" {
		opts.NewPassword = "newsecret"
	}
	if opts.OldPassword == "" {
		opts.OldPassword = cfg.BindPassword
	}
	return func(worker int, cfg runner.Config) runner.Job {
		return &passmodJob{
			Base:        newBase(env, worker, cfg),
			entries:     ents,
			oldPassword: opts.OldPassword,
			newPassword: opts.NewPassword,
		}
	}, nil
}

func (j *passmodJob) Prepare(context.Context) error {
	return j.authenticate()
}

func (j *passmodJob) Request(_ context.Context, seq int) error {
	_, dn, err := j.entries.name(j.Worker, seq)
	if err != nil {
		return err
	}
	_, err = j.conn.PasswordModify(ldap.NewPasswordModifyRequest(dn, j.oldPassword, j.newPassword))
	return err
}
