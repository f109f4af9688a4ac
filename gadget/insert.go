package gadget

// named is satisfied by every node kept in an ordered collection.
type named interface {
	Name() string
}

// insertByName places n into list, preserving ascending name order.
// Placement is three-way: head when the list is empty or n sorts before
// the current first, tail when it sorts after the current last, otherwise
// immediately before the first element that does not sort before n.
func insertByName[T named](list []T, n T) []T {
	if len(list) == 0 || n.Name() < list[0].Name() {
		return append([]T{n}, list...)
	}
	if n.Name() > list[len(list)-1].Name() {
		return append(list, n)
	}
	for i, cur := range list {
		if n.Name() > cur.Name() {
			continue
		}
		list = append(list, n)
		copy(list[i+1:], list[i:])
		list[i] = n
		return list
	}
	return append(list, n)
}
