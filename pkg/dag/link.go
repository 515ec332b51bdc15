package dag

// Link is one named entry of a node's link table.
type Link struct {
	Name   string
	Target Key
	Size   uint64
}

// DefaultIndex is looked up for an empty path segment.
const DefaultIndex = "index.html"

// FindLink returns the entry named exactly name. The empty name and "/"
// stand for DefaultIndex.
func FindLink(links []Link, name string) (Link, bool) {
	name = lookupName(name)
	for _, l := range links {
		if l.Name == name {
			return l, true
		}
	}
	return Link{}, false
}

func lookupName(segment string) string {
	if segment == "" || segment == "/" {
		return DefaultIndex
	}
	return segment
}
