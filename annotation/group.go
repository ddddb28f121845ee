package annotation

// GroupInstance is one occurrence of a [GroupDef] in an annotation stream.
type GroupInstance struct {
	Def *GroupDef
	// Members holds the annotations of the instance in stream order.
	Members []*Annotation
	// Duplicates holds annotations that repeated a token of the instance
	// before it was complete.
	Duplicates []*Annotation
}

// Line returns the line of the first member.
func (gi *GroupInstance) Line() int {
	if len(gi.Members) == 0 {
		return 0
	}

	return gi.Members[0].Line
}

// Contains reports whether the instance has a member with token.
func (gi *GroupInstance) Contains(token string) bool {
	for _, m := range gi.Members {
		if m.Token == token {
			return true
		}
	}

	return false
}

// Missing returns the non-optional members of the group that the instance
// lacks, in declaration order.
func (gi *GroupInstance) Missing() []*Def {
	var missing []*Def

	for _, def := range gi.Def.Required() {
		if !gi.Contains(def.Token) {
			missing = append(missing, def)
		}
	}

	return missing
}

// Complete reports whether every member of the group, optional or not, is
// present.
func (gi *GroupInstance) Complete() bool {
	for _, def := range gi.Def.Members {
		if !gi.Contains(def.Token) {
			return false
		}
	}

	return true
}

func (gi *GroupInstance) last() *Annotation {
	return gi.Members[len(gi.Members)-1]
}

// Assembly is a stream of annotations partitioned into standalone
// annotations and [GroupInstance]s.
type Assembly struct {
	Annotations []Annotation
	Instances   []*GroupInstance
	// instanceOf holds, for each annotation, the index of its instance in
	// Instances, or -1 for standalone annotations.
	instanceOf []int
}

// InstanceOf returns the group instance the i-th annotation belongs to, or
// nil if it is standalone.
func (a *Assembly) InstanceOf(i int) *GroupInstance {
	if i < 0 || i >= len(a.instanceOf) || a.instanceOf[i] < 0 {
		return nil
	}

	return a.Instances[a.instanceOf[i]]
}

// AssembleGroups partitions the annotations of one file (or one object)
// into standalone annotations and group instances.
//
// Annotations are walked in discovery order. A group token opens a new
// instance, or joins the open one when it belongs to the same group. The
// open instance closes when:
//
//   - a token that is not a member of its group appears,
//   - the next annotation comes from a comment span that is separated from
//     the previous one by code or blank lines,
//   - a token already present in the instance repeats, or
//   - every member of the group is present.
//
// A repeated token starts a new instance when the open one already has all
// non-optional members; otherwise it is recorded as a duplicate of the open
// instance, which stays open. Members may appear in any order but must be
// consecutive.
//
// The input slice is copied; the returned [Assembly] owns its annotations.
func AssembleGroups(schema *Schema, anns []Annotation) *Assembly {
	asm := &Assembly{
		Annotations: append([]Annotation(nil), anns...),
		instanceOf:  make([]int, len(anns)),
	}

	var cur *GroupInstance

	for i := range asm.Annotations {
		a := &asm.Annotations[i]
		asm.instanceOf[i] = -1

		g := schema.GroupOf(a.Token)
		if g == nil {
			cur = nil

			continue
		}

		if cur != nil {
			switch {
			case cur.Def != g, !adjacent(cur.last(), a):
				cur = nil

			case cur.Contains(a.Token):
				if len(cur.Missing()) == 0 {
					cur = nil

					break
				}

				cur.Duplicates = append(cur.Duplicates, a)
				asm.instanceOf[i] = len(asm.Instances) - 1

				continue
			}
		}

		if cur == nil {
			cur = &GroupInstance{Def: g}
			asm.Instances = append(asm.Instances, cur)
		}

		cur.Members = append(cur.Members, a)
		asm.instanceOf[i] = len(asm.Instances) - 1

		if cur.Complete() {
			cur = nil
		}
	}

	return asm
}

// adjacent reports whether next comes from the same comment span as prev,
// or from a span that starts on the line right after prev's span ends.
func adjacent(prev, next *Annotation) bool {
	if prev.File != next.File {
		return false
	}

	return next.Line >= prev.Line && next.Line <= prev.EndLine+1
}
