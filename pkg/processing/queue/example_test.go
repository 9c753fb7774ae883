package queue_test

import (
	"fmt"

	"github.com/gnrllybttr/pacer/pkg/processing/queue"
)

func ExampleNew() {
	q, err := queue.New(func(string) {}, queue.Options[string]{MaxSize: 2})
	if err != nil {
		panic(err)
	}

	fmt.Println("accepted:", q.AddItem("a"))
	fmt.Println("accepted:", q.AddItem("b"))
	fmt.Println("accepted:", q.AddItem("c"))

	for {
		item, ok := q.GetNextItem()
		if !ok {
			break
		}
		fmt.Println("item:", item)
	}

	// Output:
	// accepted: true
	// accepted: true
	// accepted: false
	// item: a
	// item: b
}

func ExampleQueuer_AddItem_position() {
	q, _ := queue.New(func(string) {}, queue.Options[string]{})

	q.AddItem("routine")
	q.AddItem("urgent", queue.PositionFront)

	next, _ := q.GetNextItem()
	fmt.Println(next)

	// Output:
	// urgent
}
