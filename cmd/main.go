package main

import (
	"fmt"
	"log"

	"github.com/emrgen/nitro-sub000/pkg/nitro"
)

func main() {
	// Two replicas of one document: d1 creates it, d2 loads it from a full
	// diff under its own client identity.
	d1, err := nitro.New(nitro.Options{LogLevel: "info", LogFormat: "console"})
	if err != nil {
		log.Fatal(err)
	}

	full, err := d1.Diff(nil)
	if err != nil {
		log.Fatal(err)
	}
	d2, err := nitro.FromDiff(full, nitro.Options{})
	if err != nil {
		log.Fatal(err)
	}

	// Concurrent edits on both sides.
	title := d1.Text()
	if err := d1.Set("title", &title.Node); err != nil {
		log.Fatal(err)
	}
	if err := title.Insert(0, "hello"); err != nil {
		log.Fatal(err)
	}

	tags := d2.List()
	if err := d2.Set("tags", &tags.Node); err != nil {
		log.Fatal(err)
	}
	if err := tags.Append(&d2.String("crdt").Node); err != nil {
		log.Fatal(err)
	}
	if err := tags.Append(&d2.Atom(42).Node); err != nil {
		log.Fatal(err)
	}

	if err := nitro.Sync(d1, d2, nitro.SyncBoth); err != nil {
		log.Fatal(err)
	}

	fmt.Println("d1:", d1.JSONString())
	fmt.Println("d2:", d2.JSONString())
	fmt.Println("converged:", nitro.EqualDocs(d1, d2))
	fmt.Println("frontier:", d1.Frontier())
}
