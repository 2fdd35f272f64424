package scene

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Version is the current shape-group serialization version.
const Version = 1

var (
	ErrEmptyGroup         = errors.New("empty shape group")
	ErrNotAGroup          = errors.New("shape group root is not a group")
	ErrUnsupportedVersion = errors.New("unsupported shape group version")
)

type envelope struct {
	Version int   `json:"version"`
	Group   *Node `json:"group"`
}

// Marshal encodes a group with the current version header.
func Marshal(group *Node) (string, error) {
	if group == nil {
		return "", ErrEmptyGroup
	}
	if group.Kind != KindGroup {
		return "", ErrNotAGroup
	}
	b, err := json.Marshal(envelope{Version: Version, Group: group})
	if err != nil {
		return "", errors.Wrap(err, "marshal shape group")
	}
	return string(b), nil
}

// Unmarshal decodes a serialized group. Payloads written by newer versions
// are decoded on a best-effort basis: unknown attributes are dropped and
// unknown node kinds are kept but contribute no geometry. A bare node
// without an envelope is read as version 0.
func Unmarshal(s string) (*Node, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyGroup
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, errors.Wrap(err, "invalid shape group")
	}

	var group *Node
	if _, ok := probe["version"]; ok {
		var env envelope
		if err := json.Unmarshal([]byte(s), &env); err != nil {
			return nil, errors.Wrap(err, "invalid shape group")
		}
		if env.Version < 1 {
			return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", env.Version)
		}
		group = env.Group
	} else {
		group = &Node{}
		if err := json.Unmarshal([]byte(s), group); err != nil {
			return nil, errors.Wrap(err, "invalid shape group")
		}
	}

	if group == nil || group.Kind == "" {
		return nil, ErrEmptyGroup
	}
	if group.Kind != KindGroup {
		return nil, ErrNotAGroup
	}
	group.link()
	return group, nil
}

// MustMarshal is Marshal for groups built in code.
func MustMarshal(group *Node) string {
	s, err := Marshal(group)
	if err != nil {
		panic(err)
	}
	return s
}
