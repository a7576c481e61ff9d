package story

import (
	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/script"
	"github.com/davetcode/zwreec/internal/token"
)

// validateStartPassage enforces spec.md §3's "there must be exactly one
// passage named Start; otherwise compilation fails."
func validateStartPassage(passages []Passage, file string, diags *diag.Bag) {
	count := 0
	for _, p := range passages {
		if p.Name == "Start" {
			count++
		}
	}
	switch {
	case count == 0:
		diags.Add(diag.AtSpan(diag.KindResolve, token.SourceSpan{File: file}, "no passage named \"Start\""))
	case count > 1:
		diags.Add(diag.AtSpan(diag.KindResolve, token.SourceSpan{File: file}, "more than one passage named \"Start\""))
	}
}

// validateLinkTargets enforces spec.md §3's "every link target ... resolves
// to a declared passage; unresolved targets are a compile error," and the
// same for <<display>>.
func validateLinkTargets(passages []Passage, diags *diag.Bag) {
	names := make(map[string]bool, len(passages))
	for _, p := range passages {
		names[p.Name] = true
	}
	for _, p := range passages {
		walkBody(p.Body, func(n BodyNode) {
			switch v := n.(type) {
			case LinkNode:
				if !names[v.Target] {
					diags.Add(diag.AtSpan(diag.KindResolve, v.Span(), "link target %q is not a declared passage", v.Target))
				}
			case MacroNode:
				if v.Stmt.Kind == script.StmtDisplay && !names[v.Stmt.Passage] {
					diags.Add(diag.AtSpan(diag.KindResolve, v.Span(), "display target %q is not a declared passage", v.Stmt.Passage))
				}
			}
		})
	}
}

// walkBody visits every BodyNode in nodes and its descendants.
func walkBody(nodes []BodyNode, visit func(BodyNode)) {
	for _, n := range nodes {
		visit(n)
		switch v := n.(type) {
		case StyledNode:
			walkBody(v.Children, visit)
		case LinkNode:
			walkBody(v.Label, visit)
		case IfNode:
			walkBody(v.Then, visit)
			walkBody(v.Else, visit)
		}
	}
}

// checkReachability warns (spec.md §6.4 supplement) about any passage
// with no incoming link/display/Start edge.
func checkReachability(passages []Passage, diags *diag.Bag) {
	byName := make(map[string]Passage, len(passages))
	for _, p := range passages {
		byName[p.Name] = p
	}

	reached := make(map[string]bool)
	var queue []string
	if _, ok := byName["Start"]; ok {
		reached["Start"] = true
		queue = append(queue, "Start")
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		p, ok := byName[name]
		if !ok {
			continue
		}
		walkBody(p.Body, func(n BodyNode) {
			var target string
			switch v := n.(type) {
			case LinkNode:
				target = v.Target
			case MacroNode:
				if v.Stmt.Kind == script.StmtDisplay {
					target = v.Stmt.Passage
				}
			}
			if target != "" && !reached[target] {
				if _, ok := byName[target]; ok {
					reached[target] = true
					queue = append(queue, target)
				}
			}
		})
	}

	for _, p := range passages {
		if !reached[p.Name] {
			diags.Add(diag.AtSpan(diag.KindWarning, p.Span, "passage %q is unreachable (no incoming link, display, or Start edge)", p.Name))
		}
	}
}

// checkUnusedVariables warns about a variable that is assigned via
// <<set>> but never read by <<print>>, <<$var>>, or a condition.
func checkUnusedVariables(passages []Passage, diags *diag.Bag) {
	assigned := make(map[string]token.SourceSpan)
	read := make(map[string]bool)

	markReads := func(e script.Expr) { collectVarReads(e, read) }

	for _, p := range passages {
		walkBody(p.Body, func(n BodyNode) {
			switch v := n.(type) {
			case MacroNode:
				switch v.Stmt.Kind {
				case script.StmtSet:
					if _, seen := assigned[v.Stmt.Var]; !seen {
						assigned[v.Stmt.Var] = v.Stmt.Span
					}
					markReads(v.Stmt.Value)
				case script.StmtPrint:
					markReads(v.Stmt.Value)
				case script.StmtPrintShorthand:
					read[v.Stmt.Var] = true
				}
			case IfNode:
				markReads(v.Cond)
			}
		})
	}

	for name, span := range assigned {
		if !read[name] {
			diags.Add(diag.AtSpan(diag.KindWarning, span, "variable $%s is assigned but never read", name))
		}
	}
}

func collectVarReads(e script.Expr, read map[string]bool) {
	switch v := e.(type) {
	case nil:
		return
	case script.VarExpr:
		read[v.Name] = true
	case script.BinExpr:
		collectVarReads(v.Left, read)
		collectVarReads(v.Right, read)
	case script.UnExpr:
		collectVarReads(v.Operand, read)
	case script.RandomExpr:
		collectVarReads(v.Lo, read)
		collectVarReads(v.Hi, read)
	}
}
