package lang

import (
	"go.jacobcolvin.com/codeannotations/annotation"
)

// Grammar names, as used in the "extensions" configuration key.
const (
	NamePython     = "python"
	NameJavaScript = "javascript"
	NameGo         = "go"
	NameShell      = "shell"
	NameYAML       = "yaml"
	NameSQL        = "sql"
	NameHTML       = "html"
	NameCSS        = "css"
	NamePlaintext  = "plaintext"
)

var cStyle = annotation.CommentSyntax{
	LineMarkers: []string{"//"},
	BlockPairs:  []annotation.BlockPair{{Open: "/*", Close: "*/"}},
}

// Python returns the grammar for Python: "#" line comments and
// triple-quoted docstrings.
func Python() *annotation.RegexGrammar {
	return annotation.NewRegexGrammar(NamePython, annotation.CommentSyntax{
		LineMarkers: []string{"#"},
		BlockPairs: []annotation.BlockPair{
			{Open: `"""`, Close: `"""`},
			{Open: "'''", Close: "'''"},
		},
	})
}

// JavaScript returns the grammar for JavaScript and TypeScript.
func JavaScript() *annotation.RegexGrammar {
	return annotation.NewRegexGrammar(NameJavaScript, cStyle)
}

// Go returns the grammar for Go.
func Go() *annotation.RegexGrammar {
	return annotation.NewRegexGrammar(NameGo, cStyle)
}

// Shell returns the grammar for shell scripts and other "#" commented
// files.
func Shell() *annotation.RegexGrammar {
	return annotation.NewRegexGrammar(NameShell, annotation.CommentSyntax{
		LineMarkers: []string{"#"},
	})
}

// YAML returns the grammar for YAML.
func YAML() *annotation.RegexGrammar {
	return annotation.NewRegexGrammar(NameYAML, annotation.CommentSyntax{
		LineMarkers: []string{"#"},
	})
}

// SQL returns the grammar for SQL: "--" line comments and C-style blocks.
func SQL() *annotation.RegexGrammar {
	return annotation.NewRegexGrammar(NameSQL, annotation.CommentSyntax{
		LineMarkers: []string{"--"},
		BlockPairs:  []annotation.BlockPair{{Open: "/*", Close: "*/"}},
	})
}

// HTML returns the grammar for HTML and XML.
func HTML() *annotation.RegexGrammar {
	return annotation.NewRegexGrammar(NameHTML, annotation.CommentSyntax{
		BlockPairs: []annotation.BlockPair{{Open: "<!--", Close: "-->"}},
	})
}

// CSS returns the grammar for CSS.
func CSS() *annotation.RegexGrammar {
	return annotation.NewRegexGrammar(NameCSS, annotation.CommentSyntax{
		BlockPairs: []annotation.BlockPair{{Open: "/*", Close: "*/"}},
	})
}

// DefaultRegistry returns an [annotation.Registry] populated with every
// built-in grammar.
func DefaultRegistry() annotation.Registry {
	r := make(annotation.Registry)
	r.Add(
		Python(),
		JavaScript(),
		Go(),
		Shell(),
		YAML(),
		SQL(),
		HTML(),
		CSS(),
		Plaintext{},
	)

	return r
}
