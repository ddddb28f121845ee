// Package models checks annotation coverage of data models.
//
// Models are not found by scanning source files. An external introspection
// step (for example a management command of a web framework) describes
// each model as a [Model]: an identifier, its docstring, whether it is
// defined in the local code tree, and the identifiers of its ancestors.
// [Searcher.Search] extracts annotations from the docstrings of every model
// and its ancestors, merges in a [Safelist] of pre-resolved annotations for
// models that cannot be annotated in place, and lints the result with the
// same rules as source comments.
//
// A local model is covered when it carries at least one annotation.
// [Coverage] reports the share of covered local models and checks it
// against a configured target.
package models
