package scanner

import (
	"errors"
	"fmt"
	"strings"

	"jarsentry/classfile"
	"jarsentry/threat"
)

// CheckerKind selects one of the built-in checks. The declared order is
// the order checks run in.
type CheckerKind int

const (
	CheckURL CheckerKind = iota
	CheckEncryption
	CheckWebConnection
	CheckCommandExecution
	CheckSocket
)

var checkerNames = [...]string{
	"URL Detection",
	"Encryption/Crypto",
	"Web Connections",
	"Command Execution",
	"Socket Connections",
}

var checkerIDs = [...]string{"url", "encryption", "web", "command", "socket"}

func (k CheckerKind) String() string {
	if k < CheckURL || k > CheckSocket {
		return fmt.Sprintf("CheckerKind(%d)", int(k))
	}
	return checkerNames[k]
}

// ID is the short name used in configuration.
func (k CheckerKind) ID() string {
	if k < CheckURL || k > CheckSocket {
		return ""
	}
	return checkerIDs[k]
}

func CheckerKinds() []CheckerKind {
	return []CheckerKind{CheckURL, CheckEncryption, CheckWebConnection, CheckCommandExecution, CheckSocket}
}

func ParseCheckerKind(s string) (CheckerKind, error) {
	id := strings.ToLower(strings.TrimSpace(s))
	for i, name := range checkerIDs {
		if id == name {
			return CheckerKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown check %q", s)
}

// ErrNoClassifier is returned for check kinds without an implementation.
var ErrNoClassifier = errors.New("no classifier registered")

// Site names the method being analyzed.
type Site struct {
	Class  string
	Method string
}

// Checker turns constants and calls seen during a method walk into
// findings. Implementations hold no state between calls.
type Checker interface {
	Kind() CheckerKind
	Category() threat.Category
	AnalyzeConstant(site Site, value string) []threat.Finding
	// AnalyzeCall receives the most recent string constant of the walk when
	// hasRecent is set.
	AnalyzeCall(site Site, call classfile.MethodCall, recent string, hasRecent bool) []threat.Finding
}

// arrayAnalyzer is implemented by checkers that inspect typed array
// allocations.
type arrayAnalyzer interface {
	AnalyzeNewArray(site Site, elementType string) []threat.Finding
}

// contextFilter is implemented by checkers that decide whether a string
// constant stays visible to later calls.
type contextFilter interface {
	RetainContext(value string, produced []threat.Finding) bool
}

func NewChecker(kind CheckerKind) (Checker, error) {
	switch kind {
	case CheckURL:
		return urlChecker{}, nil
	case CheckEncryption:
		return cryptoChecker{}, nil
	case CheckWebConnection:
		return webChecker{}, nil
	case CheckCommandExecution:
		return commandChecker{}, nil
	case CheckSocket:
		return nil, ErrNoClassifier
	default:
		return nil, fmt.Errorf("unknown check kind %d", int(kind))
	}
}

// CheckConfig toggles the checks of one scan.
type CheckConfig struct {
	URL              bool `json:"url" yaml:"url"`
	Encryption       bool `json:"encryption" yaml:"encryption"`
	WebConnection    bool `json:"web" yaml:"web"`
	CommandExecution bool `json:"command" yaml:"command"`
	Socket           bool `json:"socket" yaml:"socket"`
}

// DefaultChecks enables every check that has a classifier.
func DefaultChecks() CheckConfig {
	return CheckConfig{URL: true, Encryption: true, WebConnection: true, CommandExecution: true}
}

func CheckConfigFromIDs(ids []string) (CheckConfig, error) {
	var cfg CheckConfig
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		kind, err := ParseCheckerKind(id)
		if err != nil {
			return CheckConfig{}, err
		}
		cfg.set(kind)
	}
	return cfg, nil
}

func (c *CheckConfig) set(kind CheckerKind) {
	switch kind {
	case CheckURL:
		c.URL = true
	case CheckEncryption:
		c.Encryption = true
	case CheckWebConnection:
		c.WebConnection = true
	case CheckCommandExecution:
		c.CommandExecution = true
	case CheckSocket:
		c.Socket = true
	}
}

func (c CheckConfig) Enabled(kind CheckerKind) bool {
	switch kind {
	case CheckURL:
		return c.URL
	case CheckEncryption:
		return c.Encryption
	case CheckWebConnection:
		return c.WebConnection
	case CheckCommandExecution:
		return c.CommandExecution
	case CheckSocket:
		return c.Socket
	}
	return false
}

// Kinds returns the enabled checks in declared order.
func (c CheckConfig) Kinds() []CheckerKind {
	var out []CheckerKind
	for _, k := range CheckerKinds() {
		if c.Enabled(k) {
			out = append(out, k)
		}
	}
	return out
}

// CheckFailure reports a check that could not complete. Its findings are
// discarded.
type CheckFailure struct {
	Check CheckerKind
	Err   error
}

func (e *CheckFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Check, e.Err)
}

func (e *CheckFailure) Unwrap() error {
	return e.Err
}
