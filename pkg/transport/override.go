package transport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Override selects an alternate sender account for a single send.
// The zero value means "use the pool's default account".
// Override is comparable and is used as-is to partition idle connections.
type Override struct {
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Token    string `yaml:"token"`
}

// IsZero reports whether no account field is overridden.
func (o Override) IsZero() bool {
	return o == Override{}
}

// String renders the override without secrets, suitable for logs and errors.
func (o Override) String() string {
	if o.IsZero() {
		return "default"
	}
	parts := make([]string, 0, 3)
	if o.From != "" {
		parts = append(parts, "from="+o.From)
	}
	if o.Username != "" {
		parts = append(parts, "user="+o.Username)
	}
	if o.Token != "" {
		parts = append(parts, "token=***")
	}
	return strings.Join(parts, ",")
}

// Accounts maps account names to sender overrides.
type Accounts map[string]Override

// Lookup returns the override registered under name.
// The empty name resolves to the zero override.
func (a Accounts) Lookup(name string) (Override, bool) {
	if name == "" {
		return Override{}, true
	}
	o, ok := a[name]
	return o, ok
}

type accountsFile struct {
	Accounts map[string]Override `yaml:"accounts"`
}

// LoadAccounts reads named sender accounts from YAML:
//
//	accounts:
//	  billing:
//	    from: billing@example.com
//	    username: billing
//	    password: secret
func LoadAccounts(r io.Reader) (Accounts, error) {
	var f accountsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return Accounts{}, nil
		}
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	accounts := make(Accounts, len(f.Accounts))
	for name, o := range f.Accounts {
		if o.IsZero() {
			return nil, fmt.Errorf("%w: account %q has no fields", ErrInvalidConfig, name)
		}
		accounts[name] = o
	}
	return accounts, nil
}
