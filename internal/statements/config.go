package statements

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"budgetanalyser/internal/core"
)

const (
	SectionCreditCards      = "credit_cards"
	SectionCheckingAccounts = "checking_accounts"
)

// AccountConfig describes one account's statement export.
type AccountConfig struct {
	Name    string            `yaml:"-"`
	Section string            `yaml:"-"`
	File    string            `yaml:"file"`
	Columns map[string]string `yaml:"columns"` // canonical -> source column
}

// Config is the accounts file:
//
//	statement_dir: ./statements
//	credit_cards:
//	  citi:
//	    file: citi.csv
//	    columns:
//	      transaction_date: Date
//	      description: Description
//	checking_accounts:
//	  chase: {...}
type Config struct {
	StatementDir     string      `yaml:"statement_dir"`
	CreditCards      accountList `yaml:"credit_cards"`
	CheckingAccounts accountList `yaml:"checking_accounts"`
}

// accountList keeps accounts in file order.
type accountList []AccountConfig

func (l *accountList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: accounts must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		var acct AccountConfig
		if err := value.Content[i+1].Decode(&acct); err != nil {
			return fmt.Errorf("account %q: %w", value.Content[i].Value, err)
		}
		acct.Name = value.Content[i].Value
		*l = append(*l, acct)
	}
	return nil
}

// LoadConfig reads the accounts file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.DataSourceError{Path: path, Err: err}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &core.DataSourceError{Path: path, Err: fmt.Errorf("decode accounts config: %w", err)}
	}
	for i := range cfg.CreditCards {
		cfg.CreditCards[i].Section = SectionCreditCards
	}
	for i := range cfg.CheckingAccounts {
		cfg.CheckingAccounts[i].Section = SectionCheckingAccounts
	}
	if cfg.StatementDir != "" && !filepath.IsAbs(cfg.StatementDir) {
		cfg.StatementDir = filepath.Join(filepath.Dir(path), cfg.StatementDir)
	}
	return &cfg, nil
}

// Accounts lists credit cards first, then checking accounts.
func (c *Config) Accounts() []AccountConfig {
	out := make([]AccountConfig, 0, len(c.CreditCards)+len(c.CheckingAccounts))
	out = append(out, c.CreditCards...)
	return append(out, c.CheckingAccounts...)
}

func (c *Config) Account(name string) (AccountConfig, bool) {
	for _, a := range c.Accounts() {
		if a.Name == name {
			return a, true
		}
	}
	return AccountConfig{}, false
}

// ColumnMapping inverts the configured canonical -> source columns into the
// source -> canonical mapping the normalizer expects.
func (a AccountConfig) ColumnMapping() map[string]string {
	out := make(map[string]string, len(a.Columns))
	for canonical, source := range a.Columns {
		out[source] = canonical
	}
	return out
}

// StatementPath resolves the account's file against dir.
func (a AccountConfig) StatementPath(dir string) string {
	if filepath.IsAbs(a.File) || dir == "" {
		return a.File
	}
	return filepath.Join(dir, a.File)
}
