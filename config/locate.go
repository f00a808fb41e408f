package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var locationPattern = regexp.MustCompile(`^line (\d+)(?: column (\d+))?: (.*)$`)

// nodeError reports a scalar that failed to decode. It is a yaml.TypeError
// so the decoder keeps collecting the remaining errors of the document.
func nodeError(node *yaml.Node, format string, args ...any) error {
	return &yaml.TypeError{Errors: []string{
		fmt.Sprintf("line %d column %d: %s", node.Line, node.Column, fmt.Sprintf(format, args...)),
	}}
}

// location splits a decoder message into its position and text. A zero
// column means only the line is known.
func location(msg string) (line, column int, text string, ok bool) {
	m := locationPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, 0, msg, false
	}
	line, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		column, _ = strconv.Atoi(m[2])
	}
	return line, column, m[3], true
}

// decodeMessage flattens a nested decoding error into plain text without
// positions, which are meaningless once a node was re-encoded.
func decodeMessage(err error) string {
	var typeErr *yaml.TypeError
	if !errors.As(err, &typeErr) {
		return err.Error()
	}
	parts := make([]string, 0, len(typeErr.Errors))
	for _, msg := range typeErr.Errors {
		_, _, text, _ := location(msg)
		parts = append(parts, text)
	}
	return strings.Join(parts, "; ")
}

// fieldPath returns the path of the deepest value node at line and column,
// for example "ld2450.zones[0].zone.margin".
func fieldPath(root *yaml.Node, line, column int) (string, bool) {
	var walk func(n *yaml.Node, path string) (string, bool)
	walk = func(n *yaml.Node, path string) (string, bool) {
		switch n.Kind {
		case yaml.DocumentNode:
			for _, child := range n.Content {
				if p, ok := walk(child, path); ok {
					return p, true
				}
			}
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				key, value := n.Content[i], n.Content[i+1]
				child := key.Value
				if path != "" {
					child = path + "." + key.Value
				}
				if p, ok := walk(value, child); ok {
					return p, true
				}
				if key.Line == line && (column == 0 || key.Column == column) {
					return child, true
				}
			}
		case yaml.SequenceNode:
			for i, child := range n.Content {
				if p, ok := walk(child, fmt.Sprintf("%s[%d]", path, i)); ok {
					return p, true
				}
			}
		}
		if path != "" && n.Line == line && (column == 0 || n.Column == column) {
			return path, true
		}
		return "", false
	}
	return walk(root, "")
}
