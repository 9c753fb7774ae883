package debounce_test

import (
	"fmt"
	"time"

	"github.com/gnrllybttr/pacer/pkg/pacing/debounce"
)

func ExampleNew() {
	d, _ := debounce.New(func(query string) {
		fmt.Println("searching:", query)
	}, debounce.Options[string]{Wait: 50 * time.Millisecond})

	// Rapid keystrokes coalesce into one search with the final input.
	d.MaybeExecute("g")
	d.MaybeExecute("go")
	d.MaybeExecute("go pacing")

	d.Flush()
	// Output: searching: go pacing
}

func ExampleFunc() {
	save, cancel := debounce.Func(10*time.Millisecond, func(doc string) {
		fmt.Println("saving:", doc)
	})
	defer cancel()

	save("draft-1")
	save("draft-2")

	time.Sleep(50 * time.Millisecond)
	// Output: saving: draft-2
}
