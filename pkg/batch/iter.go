package batch

import "context"

// Iterator walks the data items of a call and every follow-up page,
// advancing pagination transparently. An iterator is single-pass: create
// one per traversal with Iter and drive it scanner-style:
//
//	it := call.Iter()
//	for it.Next(ctx) {
//		handle(it.Item())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
type Iterator struct {
	root   *Call
	page   *Call
	items  []any
	idx    int
	cur    any
	err    error
	loaded bool
	done   bool
}

// Iter returns a fresh iterator positioned before the first item of the
// call's data.
func (c *Call) Iter() *Iterator {
	return &Iterator{root: c, page: c}
}

// All forces every remaining page and returns the items of the whole
// cursor in order.
func (c *Call) All(ctx context.Context) ([]any, error) {
	var items []any
	it := c.Iter()
	for it.Next(ctx) {
		items = append(items, it.Item())
	}
	return items, it.Err()
}

// Next advances to the next item, forcing completion and following
// pagination as needed. It returns false when the sequence ends or an
// error occurs; check Err afterwards.
func (it *Iterator) Next(ctx context.Context) bool {
	for {
		if it.done || it.err != nil {
			return false
		}
		if !it.loaded && !it.loadPage(ctx) {
			return false
		}
		if it.idx < len(it.items) {
			it.cur = it.items[it.idx]
			it.idx++
			return true
		}
		succ, err := it.page.NextPage(ctx)
		if err != nil {
			it.err = err
			return false
		}
		if succ == nil {
			it.done = true
			return false
		}
		it.page = succ
		it.loaded = false
	}
}

// Item returns the element produced by the last successful Next.
func (it *Iterator) Item() any {
	return it.cur
}

// Err returns the error that terminated iteration. Unlike the call's
// result accessors it reports regardless of the quiet flag.
func (it *Iterator) Err() error {
	return it.err
}

// loadPage pulls the current page's data list. Non-list data mid-cursor
// is a paging violation: the error lands on the iterator's root call,
// back-referencing the offending page.
func (it *Iterator) loadPage(ctx context.Context) bool {
	data, err := it.page.Data(ctx)
	if err != nil {
		it.err = err
		return false
	}
	list, ok := data.([]any)
	if !ok {
		it.root.storeErr(&Error{
			Kind:    KindProtocol,
			Call:    it.page,
			Message: "unexpected non-list data while paging",
		})
		it.err = it.root.err
		return false
	}
	it.items = list
	it.idx = 0
	it.loaded = true
	return true
}
