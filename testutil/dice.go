package testutil

import "sync"

// Dice is a scripted roller for combat tests. Each Intn call returns the next
// value, clamped to [0, n-1]; once the script runs out the last value repeats.
type Dice struct {
	mu     sync.Mutex
	values []int
	next   int
}

func NewDice(values ...int) *Dice {
	return &Dice{values: values}
}

func (d *Dice) Intn(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := 0
	if len(d.values) > 0 {
		i := d.next
		if i >= len(d.values) {
			i = len(d.values) - 1
		} else {
			d.next++
		}
		v = d.values[i]
	}
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Push appends more rolls to the script.
func (d *Dice) Push(values ...int) {
	d.mu.Lock()
	d.values = append(d.values, values...)
	d.mu.Unlock()
}

// Set replaces the script and rewinds it.
func (d *Dice) Set(values ...int) {
	d.mu.Lock()
	d.values = values
	d.next = 0
	d.mu.Unlock()
}
