package scenario

import (
	"context"
	"fmt"
	"strconv"

	"ldapbench/internal/runner"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

const DefaultUserPassword = "secret"

type AddOptions struct {
	EntryOptions
	// UUID names entries with random UUIDs instead of sequential ids.
	UUID     bool
	Password string
}

type addJob struct {
	Base
	entries  entries
	uuid     bool
	password string
}

func NewAdd(cfg runner.Config, opts AddOptions, env Env) (runner.Factory, error) {
	ents, err := newEntries(opts.EntryOptions, cfg)
	if err != nil {
		return nil, err
	}
	if opts.Password == "" {
		opts.Password = DefaultUserPassword
	}
	return func(worker int, cfg runner.Config) runner.Job {
		return &addJob{
			Base:     newBase(env, worker, cfg),
			entries:  ents,
			uuid:     opts.UUID,
			password: opts.Password,
		}
	}, nil
}

func (j *addJob) Prepare(context.Context) error {
	return j.authenticate()
}

func (j *addJob) Request(_ context.Context, seq int) error {
	var cn, dn string
	if j.uuid {
		cn = uuid.NewString()
		dn = fmt.Sprintf("cn=%s,%s", cn, j.Cfg.BaseDN)
	} else {
		var err error
		if cn, dn, err = j.entries.name(j.Worker, seq); err != nil {
			return err
		}
	}

	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"person"})
	req.Attribute("cn", []string{cn})
	req.Attribute("sn", []string{strconv.Itoa(j.Worker)})
	req.Attribute("userPassword", []string{j.password})
	return j.conn.Add(req)
}
