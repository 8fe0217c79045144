package console

// WalkMenus calls fn for every node of the menu forest, parents first.
// Returning false from fn skips the node's children.
func WalkMenus(nodes []MenuNode, fn func(MenuNode) bool) {
	for _, n := range nodes {
		if fn(n) {
			WalkMenus(n.Children, fn)
		}
	}
}

// FlattenSideBar returns every leaf URL of the side bar in display order.
func FlattenSideBar(items []SideBarItem) []string {
	var out []string
	for _, it := range items {
		if len(it.Children) == 0 {
			if it.URL != "" {
				out = append(out, it.URL)
			}
			continue
		}
		out = append(out, FlattenSideBar(it.Children)...)
	}
	return out
}
