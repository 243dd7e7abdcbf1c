// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"context"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&KDLParser{})
}

// 🔧 KDLParser implements the Parser interface for KDL files
//
//	workers 4
//	rule {
//	    search "func (x *T) {" "    return nil"
//	    replace "func (x *T) {}"
//	    path "**/*.go"
//	}
type KDLParser struct{}

func (p *KDLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".kdl")
}

func (p *KDLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	doc, err := kdl.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Errorf("parsing KDL: %w", err)
	}

	cfg := &Config{}
	for _, n := range doc.Nodes {
		switch name := nodeName(n); name {
		case "workers":
			v, ok := firstIntArg(n)
			if !ok {
				return nil, errors.Errorf("parsing KDL: workers expects an integer")
			}
			cfg.Workers = v
		case "reopen":
			v, ok := firstBoolArg(n)
			if !ok {
				return nil, errors.Errorf("parsing KDL: reopen expects a boolean")
			}
			cfg.Reopen = v
		case "log_level":
			v, ok := firstStringArg(n)
			if !ok {
				return nil, errors.Errorf("parsing KDL: log_level expects a string")
			}
			cfg.LogLevel = v
		case "rule":
			r, err := parseKDLRule(n)
			if err != nil {
				return nil, errors.Errorf("parsing KDL: rule %d: %w", len(cfg.Rules), err)
			}
			cfg.Rules = append(cfg.Rules, r)
		default:
			return nil, errors.Errorf("parsing KDL: unknown node %q", name)
		}
	}

	return cfg, nil
}

func parseKDLRule(n *document.Node) (Rule, error) {
	var r Rule
	for _, cn := range n.Children {
		switch name := nodeName(cn); name {
		case "search":
			r.Search = append(r.Search, stringArgs(cn)...)
		case "replace":
			v, ok := firstStringArg(cn)
			if !ok {
				return r, errors.Errorf("replace expects a string")
			}
			r.Replace = v
		case "path":
			v, ok := firstStringArg(cn)
			if !ok {
				return r, errors.Errorf("path expects a string")
			}
			r.Path = v
		default:
			return r, errors.Errorf("unknown node %q", name)
		}
	}
	return r, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func stringArgs(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
