// Package annotation finds structured annotations in source code comments,
// lints them against a configured schema, and produces reports of what it
// found.
//
// An annotation is a registered token at the start of a comment line,
// followed by data. Tokens are opaque strings such as ".. pii:" or
// "@feature-toggle"; the package never interprets the code around the
// comments, only the comments themselves.
//
// # Schema
//
// A [Schema] declares every token the run recognizes. Tokens are either
// free-form (any text follows) or choice tokens (the data is a list of
// values drawn from a fixed set). Tokens may be gathered into groups whose
// members must appear together. Schemas are usually read from the
// "annotations" key of a configuration file with [ParseSchema]:
//
//	annotations:
//	  ".. no_pii:":
//	  pii_group:
//	    - ".. pii:":
//	    - ".. pii_types:":
//	        choices: [id, name, other]
//	    - ".. pii_retirement:":
//	        choices: [retained, local_api, consumer_api]
//	        optional: true
//
// Mappings keep their declared order. A null value declares a free-form
// token, a mapping declares a choice or optional token, and a sequence
// declares a group.
//
// # Pipeline
//
// A lint run processes each file through five stages:
//
//  1. Locate comments: a [Grammar] yields the [RawComment] spans of the
//     file. [RegexGrammar] covers languages with line markers and block
//     delimiters. Consecutive full-line comments with the same marker are
//     coalesced into one span.
//
//  2. Extract: the [Extractor] finds tokens at the start of comment lines
//     and stitches indented continuation lines onto the data.
//
//  3. Assemble groups: [AssembleGroups] partitions the annotations into
//     standalone annotations and [GroupInstance]s.
//
//  4. Validate: [CheckChoices] and the completeness checks of
//     [Linter.Check] produce [Violation]s.
//
//  5. Normalize: a [Normalizer] turns annotations into report [Record]s
//     and numbers group instances.
//
// [Linter.Run] runs the first four stages for many files on a bounded
// worker pool and merges the results in file order, so the output does not
// depend on scheduling.
//
// # Reports
//
// A [Report] maps each file to its records. It encodes to YAML or JSON,
// and [ReportSchema] describes the document as JSON Schema.
//
// # Configuration
//
// [Config] binds command line flags and loads a [FileConfig] from disk.
// The configuration names a grammar for each file extension; grammars are
// looked up in a [Registry], see the lang subpackage for built-in ones.
package annotation
