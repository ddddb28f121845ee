package annotation

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// Def describes a single registered annotation token.
type Def struct {
	// Token is the literal string searched for in comments, e.g. ".. pii:".
	Token string
	// Group is the ID of the [GroupDef] this token belongs to, or empty for
	// standalone tokens.
	Group    string
	Choices  []string
	Optional bool
}

// HasChoices reports whether values of this token are drawn from a fixed
// vocabulary.
func (d *Def) HasChoices() bool {
	return d.Choices != nil
}

// Allows reports whether choice is one of the configured choices.
// Matching is case-sensitive.
func (d *Def) Allows(choice string) bool {
	return slices.Contains(d.Choices, choice)
}

// GroupDef is an ordered set of tokens that must appear together.
// The first member is the anchor, which is used for documentation only;
// members may appear in any order.
type GroupDef struct {
	ID      string
	Members []*Def
}

// Anchor returns the first declared member of the group.
func (g *GroupDef) Anchor() *Def {
	return g.Members[0]
}

// Has reports whether token is a member of the group.
func (g *GroupDef) Has(token string) bool {
	return g.member(token) != nil
}

// Required returns the non-optional members in declaration order.
func (g *GroupDef) Required() []*Def {
	var defs []*Def

	for _, m := range g.Members {
		if !m.Optional {
			defs = append(defs, m)
		}
	}

	return defs
}

// Tokens returns the member tokens in declaration order.
func (g *GroupDef) Tokens() []string {
	tokens := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		tokens = append(tokens, m.Token)
	}

	return tokens
}

func (g *GroupDef) member(token string) *Def {
	for _, m := range g.Members {
		if m.Token == token {
			return m
		}
	}

	return nil
}

// Schema is the set of registered annotation tokens and groups.
//
// A Schema is built once, before scanning, with [NewSchema] and
// [Schema.Add] / [Schema.AddGroup], or with [ParseSchema]. It must not be
// modified after scanning starts; read-only use is safe from multiple
// goroutines.
type Schema struct {
	defs     map[string]*Def
	groups   map[string]*GroupDef
	tokens   []string
	groupIDs []string
	// byLength holds tokens sorted longest first, so that a token that is a
	// prefix of another never shadows it.
	byLength []string
}

// NewSchema returns an empty [Schema].
func NewSchema() *Schema {
	return &Schema{
		defs:   make(map[string]*Def),
		groups: make(map[string]*GroupDef),
	}
}

// Add registers standalone tokens.
func (s *Schema) Add(defs ...Def) error {
	for _, def := range defs {
		def.Group = ""

		err := s.register(&def)
		if err != nil {
			return err
		}
	}

	return nil
}

// AddGroup registers a group. Groups need at least two members.
func (s *Schema) AddGroup(id string, members ...Def) error {
	if _, exists := s.groups[id]; exists {
		return fmt.Errorf("%w: group %q is configured more than once", ErrSchema, id)
	}

	if len(members) < 2 {
		return fmt.Errorf("%w: group %q must have more than one annotation", ErrSchema, id)
	}

	g := &GroupDef{ID: id}

	for _, m := range members {
		m.Group = id

		err := s.register(&m)
		if err != nil {
			return err
		}

		g.Members = append(g.Members, s.defs[m.Token])
	}

	s.groups[id] = g
	s.groupIDs = append(s.groupIDs, id)

	return nil
}

func (s *Schema) register(def *Def) error {
	token := strings.TrimSpace(def.Token)
	if token == "" {
		return fmt.Errorf("%w: empty annotation token", ErrSchema)
	}

	if _, exists := s.defs[token]; exists {
		return fmt.Errorf("%w: %s is configured more than once, tokens must be unique", ErrSchema, token)
	}

	if def.Choices != nil && len(def.Choices) == 0 {
		return fmt.Errorf("%w: %s has an empty choices list", ErrSchema, token)
	}

	d := *def
	d.Token = token
	d.Choices = slices.Clone(def.Choices)

	s.defs[token] = &d
	s.tokens = append(s.tokens, token)

	s.byLength = append(s.byLength, token)
	sort.SliceStable(s.byLength, func(i, j int) bool {
		return len(s.byLength[i]) > len(s.byLength[j])
	})

	return nil
}

// Def returns the definition for token.
func (s *Schema) Def(token string) (*Def, bool) {
	d, ok := s.defs[token]

	return d, ok
}

// Tokens returns all registered tokens in declaration order.
func (s *Schema) Tokens() []string {
	return slices.Clone(s.tokens)
}

// Group returns the group with the given ID.
func (s *Schema) Group(id string) (*GroupDef, bool) {
	g, ok := s.groups[id]

	return g, ok
}

// Groups returns all groups in declaration order.
func (s *Schema) Groups() []*GroupDef {
	groups := make([]*GroupDef, 0, len(s.groupIDs))
	for _, id := range s.groupIDs {
		groups = append(groups, s.groups[id])
	}

	return groups
}

// GroupOf returns the group token belongs to, or nil.
func (s *Schema) GroupOf(token string) *GroupDef {
	d, ok := s.defs[token]
	if !ok || d.Group == "" {
		return nil
	}

	return s.groups[d.Group]
}

// Choices returns every configured choice value across all tokens, in
// declaration order. Values shared by several tokens appear once.
func (s *Schema) Choices() []string {
	var all []string

	for _, token := range s.tokens {
		for _, c := range s.defs[token].Choices {
			if !slices.Contains(all, c) {
				all = append(all, c)
			}
		}
	}

	return all
}

// MatchToken returns the longest registered token that line starts with.
func (s *Schema) MatchToken(line string) (string, bool) {
	for _, token := range s.byLength {
		if strings.HasPrefix(line, token) {
			return token, true
		}
	}

	return "", false
}

// Mentions reports whether text contains any registered token. It is used
// as a fast path to skip files without annotations.
func (s *Schema) Mentions(text string) bool {
	for _, token := range s.tokens {
		if strings.Contains(text, token) {
			return true
		}
	}

	return false
}

// ParseSchema parses the YAML "annotations" mapping:
//
//	".. no_pii:":
//	".. ignored:":
//	  choices: [irrelevant, terrible]
//	pii_group:
//	  - ".. pii:":
//	  - ".. pii_types:":
//	      choices: [id, name]
//	  - ".. pii_retirement:":
//	      choices: [retained, local_api]
//	      optional: true
//
// A null value declares a free-form token, a mapping declares a token with
// choices and/or the optional flag, and a sequence declares a group.
func ParseSchema(data []byte) (*Schema, error) {
	var ms yaml.MapSlice

	err := yaml.UnmarshalWithOptions(data, &ms, yaml.UseOrderedMap())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	return SchemaFromMapSlice(ms)
}

// SchemaFromMapSlice builds a [Schema] from an already decoded
// "annotations" mapping. See [ParseSchema] for the accepted shapes.
func SchemaFromMapSlice(ms yaml.MapSlice) (*Schema, error) {
	s := NewSchema()

	for _, item := range ms {
		name := fmt.Sprint(item.Key)

		switch v := item.Value.(type) {
		case []any:
			members, err := parseGroupMembers(name, v)
			if err != nil {
				return nil, err
			}

			err = s.AddGroup(name, members...)
			if err != nil {
				return nil, err
			}

		default:
			def, err := parseDef(name, v)
			if err != nil {
				return nil, err
			}

			err = s.Add(def)
			if err != nil {
				return nil, err
			}
		}
	}

	return s, nil
}

func parseGroupMembers(group string, items []any) ([]Def, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: group %q must have more than one annotation", ErrSchema, group)
	}

	members := make([]Def, 0, len(items))

	for _, item := range items {
		entries, ok := mapItems(item)
		if !ok {
			// A bare string is accepted as a free-form member.
			token, isString := item.(string)
			if !isString {
				return nil, fmt.Errorf("%w: group %q: %v is an unknown annotation type", ErrSchema, group, item)
			}

			members = append(members, Def{Token: token})

			continue
		}

		for _, e := range entries {
			def, err := parseDef(fmt.Sprint(e.Key), e.Value)
			if err != nil {
				return nil, err
			}

			members = append(members, def)
		}
	}

	return members, nil
}

func parseDef(token string, value any) (Def, error) {
	def := Def{Token: token}

	if value == nil {
		return def, nil
	}

	entries, ok := mapItems(value)
	if !ok {
		return def, fmt.Errorf("%w: %s: %v is an unknown annotation type", ErrSchema, token, value)
	}

	for _, e := range entries {
		key := fmt.Sprint(e.Key)

		switch key {
		case "choices":
			choices, err := parseChoices(token, e.Value)
			if err != nil {
				return def, err
			}

			def.Choices = choices

		case "optional":
			b, isBool := e.Value.(bool)
			if !isBool {
				return def, fmt.Errorf("%w: %s: optional must be true or false, not %v", ErrSchema, token, e.Value)
			}

			def.Optional = b

		default:
			return def, fmt.Errorf("%w: %s: unknown key %q", ErrSchema, token, key)
		}
	}

	return def, nil
}

func parseChoices(token string, value any) ([]string, error) {
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("%w: %s: choices must be a non-empty list", ErrSchema, token)
	}

	choices := make([]string, 0, len(list))

	for _, v := range list {
		var c string

		switch cv := v.(type) {
		case string:
			c = cv
		case bool, int, int64, uint64, float64:
			c = fmt.Sprint(cv)
		default:
			return nil, fmt.Errorf("%w: %s: choice %v is not a scalar", ErrSchema, token, v)
		}

		if strings.ContainsAny(c, ", \t\n") {
			return nil, fmt.Errorf("%w: %s: choice %q must not contain commas or whitespace", ErrSchema, token, c)
		}

		choices = append(choices, c)
	}

	return choices, nil
}

// mapItems returns the entries of a decoded YAML mapping, preserving
// source order when the decoder produced a [yaml.MapSlice].
func mapItems(v any) ([]yaml.MapItem, bool) {
	switch m := v.(type) {
	case yaml.MapSlice:
		return m, true
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}

		slices.Sort(keys)

		items := make([]yaml.MapItem, 0, len(keys))
		for _, k := range keys {
			items = append(items, yaml.MapItem{Key: k, Value: m[k]})
		}

		return items, true
	}

	return nil, false
}
