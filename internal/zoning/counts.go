package zoning

// ZoneCount is the per zone, per class tally of one frame.
type ZoneCount struct {
	Zone    string
	Class   string
	Present int
	Entered int
	Exited  int
}

// Counts flattens a zoning tree into per zone, per class tallies, in zone
// order and then catalog order. The rest bucket is reported with zone
// KeyRest and only Present set.
func (e *Engine) Counts(tree Node) []ZoneCount {
	names := e.catalog.names
	out := make([]ZoneCount, 0, (len(e.zones)+1)*len(names))
	for _, zone := range e.ZoneIDs() {
		record := tree.Child(zone)
		entered := record.Child(KeyEntered)
		exited := record.Child(KeyExited)
		for _, name := range names {
			out = append(out, ZoneCount{
				Zone:    zone,
				Class:   name,
				Present: len(record[name].ids),
				Entered: len(entered[name].ids),
				Exited:  len(exited[name].ids),
			})
		}
	}
	rest := tree.Child(KeyRest)
	for _, name := range names {
		out = append(out, ZoneCount{Zone: KeyRest, Class: name, Present: len(rest[name].ids)})
	}
	return out
}
