package closure

// Entry is a term whose closure survived filtering.
type Entry struct {
	Term    string
	Members []string // sorted, includes Term
}

// Without returns the members other than the term itself.
func (e Entry) Without() []string {
	out := make([]string, 0, len(e.Members))
	for _, m := range e.Members {
		if m != e.Term {
			out = append(out, m)
		}
	}
	return out
}

// Filter keeps the closures smaller than maxChildNum, in the given term order.
// Generic near-root terms have huge closures and are dropped here so that
// propagating through them cannot blow up the annotation table.
func Filter(c Closure, order []string, maxChildNum int) []Entry {
	entries := make([]Entry, 0, len(order))
	for _, term := range order {
		members, ok := c[term]
		if !ok || len(members) >= maxChildNum {
			continue
		}
		entries = append(entries, Entry{Term: term, Members: members})
	}
	return entries
}
