package extractor

import "strings"

// guardSeparator joins nested guards into one expression.
const guardSeparator = " && "

// guardStack tracks the active `ifdef/`ifndef context of a file.
//
// `elsif and `else rewrite the top frame in place instead of pushing a new
// one, so a branch stays one level deep. Unbalanced directives never fail:
// operations on an empty stack other than a push are ignored.
type guardStack struct {
	frames []string
}

// apply updates the stack for one directive kind and its macro operand.
func (g *guardStack) apply(kind, macro string) {
	switch kind {
	case "ifdef":
		g.frames = append(g.frames, macro)
	case "ifndef":
		g.frames = append(g.frames, "!"+macro)
	case "elsif":
		if top := len(g.frames) - 1; top >= 0 {
			g.frames[top] = "elsif:" + macro
		}
	case "else":
		if top := len(g.frames) - 1; top >= 0 {
			g.frames[top] = "else:" + g.frames[top]
		}
	case "endif":
		if top := len(g.frames) - 1; top >= 0 {
			g.frames = g.frames[:top]
		}
	}
}

// expression renders the current context, or "" when unguarded.
func (g *guardStack) expression() string {
	if len(g.frames) == 0 {
		return ""
	}
	return strings.Join(g.frames, guardSeparator)
}
