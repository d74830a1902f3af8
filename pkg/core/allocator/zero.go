package allocator

// allocateZero clears every allocation in the group
func allocateZero(g *Group) {
	for _, p := range g.Profiles {
		p.reset()
	}
}
