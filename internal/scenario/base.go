// Package scenario implements the benchmark jobs: one LDAP operation per
// scenario plus a synthetic one that never touches the network.
package scenario

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"ldapbench/internal/runner"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

const dialTimeout = 10 * time.Second

var ErrNoEntries = errors.New("search returned no entries")

// Conn is the part of *ldap.Conn the scenarios use.
type Conn interface {
	Bind(username, password string) error
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Del(req *ldap.DelRequest) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	PasswordModify(req *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error)
	Unbind() error
	Close() error
}

// Dialer opens the connection of one worker.
type Dialer func(ctx context.Context, cfg runner.Config) (Conn, error)

// DialLDAP connects to cfg.URL and upgrades the connection with StartTLS
// when requested. Certificates are not verified.
func DialLDAP(ctx context.Context, cfg runner.Config) (Conn, error) {
	d := &net.Dialer{Timeout: dialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		d.Deadline = deadline
	}

	conn, err := ldap.DialURL(cfg.URL, ldap.DialWithDialer(d))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	if cfg.StartTLS {
		if err := conn.StartTLS(&tls.Config{InsecureSkipVerify: true}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("starttls %s: %w", cfg.URL, err)
		}
	}
	return conn, nil
}

// Env carries the collaborators shared by every worker of a scenario.
type Env struct {
	Dial Dialer
	Log  *zap.Logger
}

func (e Env) withDefaults() Env {
	if e.Dial == nil {
		e.Dial = DialLDAP
	}
	if e.Log == nil {
		e.Log = zap.NewNop()
	}
	return e
}

// Base holds the exclusive connection of one worker and implements the
// connect and finish steps shared by the LDAP scenarios.
type Base struct {
	Worker int
	Cfg    runner.Config

	env  Env
	conn Conn
}

func newBase(env Env, worker int, cfg runner.Config) Base {
	return Base{Worker: worker, Cfg: cfg, env: env.withDefaults()}
}

func (b *Base) Connect(ctx context.Context) error {
	b.env.Log.Debug("connecting", zap.Int("worker", b.Worker), zap.String("url", b.Cfg.URL))
	conn, err := b.env.Dial(ctx, b.Cfg)
	if err != nil {
		return err
	}
	b.conn = conn
	return nil
}

func (b *Base) Prepare(context.Context) error {
	return nil
}

// authenticate binds as the configured bind DN.
func (b *Base) authenticate() error {
	b.env.Log.Debug("binding", zap.Int("worker", b.Worker), zap.String("dn", b.Cfg.BindDN))
	if err := b.conn.Bind(b.Cfg.BindDN, b.Cfg.BindPassword); err != nil {
		return fmt.Errorf("bind as %s: %w", b.Cfg.BindDN, err)
	}
	return nil
}

func (b *Base) Finish(context.Context) {
	if b.conn == nil {
		return
	}
	b.env.Log.Debug("finalize", zap.Int("worker", b.Worker))
	// Unbind closes the connection on success.
	if err := b.conn.Unbind(); err != nil {
		b.conn.Close()
	}
	b.conn = nil
}

// EntryOptions names the entries a write scenario works on: worker w
// handles ids First+w*perWorker up to First+(w+1)*perWorker-1, one per
// request, so consecutive add, modify and delete runs hit the same entries.
type EntryOptions struct {
	First int
	// CN is the cn template; "%d" by default.
	CN string
}

type entries struct {
	cn        *Template
	first     int
	perWorker int
	baseDN    string
}

func newEntries(opts EntryOptions, cfg runner.Config) (entries, error) {
	if opts.CN == "" {
		opts.CN = "%d"
	}
	cn, err := ParseTemplate("cn", opts.CN)
	if err != nil {
		return entries{}, err
	}
	return entries{cn: cn, first: opts.First, perWorker: cfg.PerWorker(), baseDN: cfg.BaseDN}, nil
}

func (e entries) id(worker, seq int) int {
	return e.first + worker*e.perWorker + seq
}

// name returns the cn and the full DN of the entry for one request.
func (e entries) name(worker, seq int) (string, string, error) {
	cn, err := e.cn.Execute(TemplateData{ID: e.id(worker, seq), Worker: worker, Seq: seq})
	if err != nil {
		return "", "", err
	}
	return cn, fmt.Sprintf("cn=%s,%s", cn, e.baseDN), nil
}

// idRange draws random ids for bind and search templates.
type idRange struct {
	first, last int
}

func (r idRange) set() bool {
	return r.last > 0 && r.last >= r.first
}

func (r idRange) pick() int {
	if !r.set() {
		return r.first
	}
	return rand.IntN(r.last-r.first+1) + r.first
}
