package geo

// Node is a single administrative area in the geography tree.
type Node struct {
	ID       string
	Name     string
	Code     string
	Level    Level
	ParentID string
}

// DisplayName returns the canonical suffixed form, e.g. "Lusaka Province".
func (n *Node) DisplayName() string {
	if n == nil {
		return ""
	}
	return n.Name + " " + n.Level.Title()
}
