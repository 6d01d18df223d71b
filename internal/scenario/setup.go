package scenario

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"ldapbench/internal/runner"

	"github.com/go-ldap/ldap/v3"
)

// Open dials and binds a single administrative connection for the setup
// commands.
func Open(ctx context.Context, cfg runner.Config, dial Dialer) (Conn, error) {
	if dial == nil {
		dial = DialLDAP
	}
	conn, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind as %s: %w", cfg.BindDN, err)
	}
	return conn, nil
}

// SetupBase adds the dcObject/organization entry at the base DN.
func SetupBase(conn Conn, baseDN string, out io.Writer) error {
	req := ldap.NewAddRequest(baseDN, nil)
	req.Attribute("objectClass", []string{"dcObject", "organization"})
	req.Attribute("o", []string{"lb"})

	fmt.Fprintf(out, "Adding base entry: %s\n", baseDN)
	if err := conn.Add(req); err != nil {
		return fmt.Errorf("add %s: %w", baseDN, err)
	}
	fmt.Fprintf(out, "Added base entry: %s\n", baseDN)
	return nil
}

type PersonOptions struct {
	// CN of the entry. With a range, an id verb in CN is replaced by the id,
	// otherwise the id is appended.
	CN       string
	SN       string
	Password string
	First    int
	Last     int
}

// SetupPerson adds one person entry, or one per id in [First, Last] when
// Last is positive. It stops at the first failure and returns how many
// entries were added.
func SetupPerson(conn Conn, baseDN string, opts PersonOptions, out io.Writer) (int, error) {
	if opts.CN == "" {
		opts.CN = "user"
	}
	if opts.Password == "" {
		opts.Password = DefaultUserPassword
	}
	cn, err := ParseTemplate("cn", opts.CN)
	if err != nil {
		return 0, err
	}

	if opts.Last <= 0 {
		name, err := cn.Execute(TemplateData{ID: opts.First})
		if err != nil {
			return 0, err
		}
		if err := addPerson(conn, baseDN, name, opts, out); err != nil {
			return 0, err
		}
		return 1, nil
	}

	added := 0
	for i := opts.First; i <= opts.Last; i++ {
		var name string
		if cn.UsesID() {
			if name, err = cn.Execute(TemplateData{ID: i}); err != nil {
				return added, err
			}
		} else {
			name = opts.CN + strconv.Itoa(i)
		}
		if err := addPerson(conn, baseDN, name, opts, out); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func addPerson(conn Conn, baseDN, cn string, opts PersonOptions, out io.Writer) error {
	sn := opts.SN
	if sn == "" {
		sn = cn
	}
	dn := fmt.Sprintf("cn=%s,%s", cn, baseDN)

	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"person"})
	req.Attribute("cn", []string{cn})
	req.Attribute("sn", []string{sn})
	req.Attribute("userPassword", []string{opts.Password})

	fmt.Fprintf(out, "Adding person entry: %s\n", dn)
	if err := conn.Add(req); err != nil {
		return fmt.Errorf("add %s: %w", dn, err)
	}
	fmt.Fprintf(out, "Added person entry: %s\n", dn)
	return nil
}
