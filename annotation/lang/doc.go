// Package lang provides the built-in comment grammars and a convenience
// function for registering them with an [annotation.Registry].
//
// Most grammars are [annotation.RegexGrammar]s that know the line markers
// and block delimiters of a language. [Plaintext] treats every line of a
// file as a comment of its own.
package lang
