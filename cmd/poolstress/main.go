// Command poolstress soaks a slabpool.SyncExpandablePool with concurrent
// producers and consumers and reports how the pool behaved.
package main

func main() {
	execute()
}
