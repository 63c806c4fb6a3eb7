package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/BaSui01/klingflow/nodes"
)

// nodeListing 是 nodes 命令输出的单个节点
type nodeListing struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	Category    string        `json:"category"`
	Description string        `json:"description,omitempty"`
	Schema      *nodes.Schema `json:"schema"`
}

// runNodes 输出节点注册表（JSON）
func runNodes(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("nodes", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	name := fs.String("name", "", "Only show this node")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := listNodes(nodes.DefaultRegistry(), *name, out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func listNodes(registry *nodes.Registry, name string, out io.Writer) error {
	listing := make([]nodeListing, 0, registry.Len())
	for _, reg := range registry.List() {
		if name != "" && reg.Name != name {
			continue
		}
		listing = append(listing, nodeListing{
			Name:        reg.Name,
			DisplayName: reg.DisplayName,
			Category:    reg.Category,
			Description: reg.Description,
			Schema:      reg.Schema(),
		})
	}
	if name != "" && len(listing) == 0 {
		return fmt.Errorf("node %q not registered", name)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(listing)
}
