// Package backend defines the storage backend descriptors for mediums and
// filesystem items.
//
// A medium carries a Config (where its tree lives, e.g. a local root
// directory) and every item under it carries a Node (where that item lives
// relative to the medium). The two are tagged unions over the same closed
// kind set and must be paired with MatchUp before any physical path is
// derived. A kind mismatch means the metadata is corrupt and is always a
// hard error.
//
// Extend by adding a kind constant plus Config/Node/Pair variants, not by
// scattering kind checks through callers.
package backend

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
)

// Kind identifies a backend implementation.
type Kind string

const (
	// KindLocal stores content on the local filesystem.
	KindLocal Kind = "local"
)

// ErrMismatch is returned when a Config and a Node pick different kinds.
// This indicates an item pointing at a backend kind its medium no longer
// uses; it must never be papered over with a guessed path.
var ErrMismatch = errors.New("backend config and node kinds do not match")

// ConfigLocal is the medium-level descriptor for the local backend.
type ConfigLocal struct {
	// Path is the absolute root directory of the medium.
	Path string `json:"path"`
}

// Config is the medium-level backend descriptor.
// Exactly one variant field is set, selected by Kind.
type Config struct {
	Kind  Kind         `json:"kind"`
	Local *ConfigLocal `json:"local,omitempty"`
}

// NewLocalConfig creates a local backend Config rooted at path.
func NewLocalConfig(path string) Config {
	return Config{Kind: KindLocal, Local: &ConfigLocal{Path: path}}
}

// NodeLocal is the item-level descriptor for the local backend.
type NodeLocal struct {
	// Path is relative to the owning medium's root. Empty for the Root item.
	Path string `json:"path"`
}

// Node is the item-level backend descriptor.
// Exactly one variant field is set, selected by Kind.
type Node struct {
	Kind  Kind       `json:"kind"`
	Local *NodeLocal `json:"local,omitempty"`
}

// NewLocalNode creates a local backend Node at the given relative path.
func NewLocalNode(relPath string) Node {
	return Node{Kind: KindLocal, Local: &NodeLocal{Path: relPath}}
}

// LocalPair carries a kind-matched local Config and Node.
type LocalPair struct {
	Config ConfigLocal
	Node   NodeLocal
}

// FullPath returns the absolute on-disk path for the node.
func (p LocalPair) FullPath() string {
	if p.Node.Path == "" {
		return p.Config.Path
	}
	return filepath.Join(p.Config.Path, p.Node.Path)
}

// Pair is the result of matching a Config against a Node.
// Exactly one variant field is set, selected by Kind.
type Pair struct {
	Kind  Kind
	Local *LocalPair
}

// MatchUp pairs a medium Config with an item Node. Both must select the
// same kind; all physical path construction flows through the returned Pair.
func MatchUp(cfg Config, node Node) (Pair, error) {
	if cfg.Kind != node.Kind {
		return Pair{}, fmt.Errorf("%w: config %q, node %q", ErrMismatch, cfg.Kind, node.Kind)
	}

	switch cfg.Kind {
	case KindLocal:
		if cfg.Local == nil || node.Local == nil {
			return Pair{}, fmt.Errorf("%w: missing local descriptor", ErrMismatch)
		}
		return Pair{
			Kind:  KindLocal,
			Local: &LocalPair{Config: *cfg.Local, Node: *node.Local},
		}, nil
	default:
		return Pair{}, fmt.Errorf("%w: unknown kind %q", ErrMismatch, cfg.Kind)
	}
}

// Value implements driver.Valuer so a Config persists as a JSON column.
func (c Config) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for the JSON backend column.
func (c *Config) Scan(value any) error {
	return scanJSON(value, c)
}

// Value implements driver.Valuer so a Node persists as a JSON column.
func (n Node) Value() (driver.Value, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for the JSON backend column.
func (n *Node) Scan(value any) error {
	return scanJSON(value, n)
}

func scanJSON(value, dest any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported backend column type %T", value)
	}
}
