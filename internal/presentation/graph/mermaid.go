package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
)

// GraphOverlay contains analysis results to visualize on the graph.
type GraphOverlay struct {
	AllowedStartNodes []string
	CurrentNode       string
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a compiled tree.
// It applies semantic styling:
// - Start event: ((Circle))
// - End events: (((Double circle)))
// - Service activity: [Rectangle]
// - Sub-process: [[Subroutine]] linked to a subgraph of its own tree
// - Exclusive gateway: {Rhombus}
// - Parallel gateways: {{Hexagon}}
// - Converge gateway: [/Trapezoid\]
// Gateway conditions label their flows. Overlay styles are applied if provided.
func GenerateMermaid(tree *domain.Tree, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	writeLevel(&sb, tree, "    ")

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef allowed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.AllowedStartNodes {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s allowed;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func writeLevel(sb *strings.Builder, tree *domain.Tree, indent string) {
	if tree == nil {
		return
	}

	for _, node := range tree.Nodes() {
		sb.WriteString(indent + nodeShape(node) + "\n")
	}

	for _, fid := range slices.Sorted(maps.Keys(tree.Flows)) {
		f, ok := tree.Flow(fid)
		if !ok {
			continue
		}
		arrow := "-->"
		if label := flowLabel(tree, f); label != "" {
			// Escape double quotes in condition for Mermaid label
			arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(label, "\"", "'"))
		}
		sb.WriteString(fmt.Sprintf("%s%s %s %s\n", indent, sanitizeMermaidID(f.Source), arrow, sanitizeMermaidID(f.Target)))
	}

	for _, sp := range tree.SubProcesses() {
		if sp.Pipeline == nil {
			continue
		}
		cluster := sanitizeMermaidID(sp.ID) + "_pipeline"
		sb.WriteString(fmt.Sprintf("%ssubgraph %s[\"%s\"]\n", indent, cluster, sp.ID))
		writeLevel(sb, sp.Pipeline, indent+"    ")
		sb.WriteString(indent + "end\n")
		if sp.Pipeline.StartEvent != nil {
			sb.WriteString(fmt.Sprintf("%s%s -.-> %s\n", indent, sanitizeMermaidID(sp.ID), sanitizeMermaidID(sp.Pipeline.StartEvent.ID)))
		}
	}
}

func nodeShape(node domain.Node) string {
	b := node.Base()
	label := b.ID
	if b.Name != "" {
		label = b.Name
	}

	// Node Shape based on Type
	opener, closer := "[", "]"
	switch n := node.(type) {
	case *domain.EmptyStartEvent:
		opener, closer = "((", "))"
	case *domain.EmptyEndEvent:
		opener, closer = "(((", ")))"
	case *domain.ExecutableEndEvent:
		opener, closer = "(((", ")))"
		label = fmt.Sprintf("%s <br/> %s", label, n.Code)
	case *domain.ServiceActivity:
		if n.Component.Code != "" {
			label = fmt.Sprintf("%s <br/> %s", label, n.Component.Code)
		}
	case *domain.SubProcess:
		opener, closer = "[[", "]]"
	case *domain.ExclusiveGateway:
		opener, closer = "{", "}"
	case *domain.ParallelGateway:
		opener, closer = "{{", "}}"
	case *domain.ConditionalParallelGateway:
		opener, closer = "{{", "}}"
		label += " ?"
	case *domain.ConvergeGateway:
		opener, closer = "[/", "\\]"
	}
	return fmt.Sprintf("%s%s\"%s\"%s", sanitizeMermaidID(b.ID), opener, strings.ReplaceAll(label, "\"", "'"), closer)
}

// flowLabel returns the condition text of a gateway flow, if any.
func flowLabel(tree *domain.Tree, f *domain.Flow) string {
	var (
		conds map[string]domain.Condition
		def   *domain.DefaultCondition
	)
	switch g := tree.Gateways[f.Source].(type) {
	case *domain.ExclusiveGateway:
		conds, def = g.Conditions, g.DefaultCondition
	case *domain.ConditionalParallelGateway:
		conds, def = g.Conditions, g.DefaultCondition
	default:
		return ""
	}
	if c, ok := conds[f.ID]; ok {
		return c.Evaluate
	}
	if def != nil && def.FlowID == f.ID {
		if def.Name != "" {
			return "default: " + def.Name
		}
		return "default"
	}
	return ""
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
