// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package diff

import "container/heap"

// Heap is a min-heap of diffs keyed on Pos.
type Heap struct {
	items diffs
}

func NewHeap(ds ...Diff) *Heap {
	h := &Heap{items: append(diffs(nil), ds...)}
	heap.Init(&h.items)
	return h
}

func (h *Heap) Len() int {
	return h.items.Len()
}

func (h *Heap) Push(d Diff) {
	heap.Push(&h.items, d)
}

// Pop removes and returns the diff with the smallest Pos.
func (h *Heap) Pop() (Diff, bool) {
	if h.items.Len() == 0 {
		return Diff{}, false
	}
	return heap.Pop(&h.items).(Diff), true
}

// Peek returns the smallest diff without removing it.
func (h *Heap) Peek() (Diff, bool) {
	if h.items.Len() == 0 {
		return Diff{}, false
	}
	return h.items[0], true
}

// MergeWith moves every diff of other into h, leaving other empty.
func (h *Heap) MergeWith(other *Heap) {
	if other == nil || other.Len() == 0 {
		return
	}
	h.items = append(h.items, other.items...)
	other.items = nil
	heap.Init(&h.items)
}

type diffs []Diff

func (d diffs) Len() int           { return len(d) }
func (d diffs) Less(i, j int) bool { return d[i].Pos < d[j].Pos }
func (d diffs) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }

func (d *diffs) Push(x any) {
	*d = append(*d, x.(Diff))
}

func (d *diffs) Pop() any {
	old := *d
	n := len(old)
	x := old[n-1]
	*d = old[:n-1]
	return x
}
